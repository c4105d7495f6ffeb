package analysis

import (
	"math"

	"github.com/jesbu1/rl-starter-files/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a set of per-episode values. Std is the population
// standard deviation.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Synthesize returns NaN for every field when xs is empty.
func Synthesize(xs []float64) Stats {
	if len(xs) == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, Std: nan, Min: nan, Max: nan}
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	return Stats{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}
}

func (s Stats) values() []float64 {
	return []float64{s.Mean, s.Std, s.Min, s.Max}
}

var statNames = []string{"mean", "std", "min", "max"}

// Fields flattens a report into the columns written to log.csv, in order.
func Fields(r *core.UpdateReport) ([]string, []float64) {
	header := []string{"update", "frames", "FPS", "duration"}
	data := []float64{float64(r.Update), float64(r.NumFrames), r.FPS, math.Floor(r.Duration.Seconds())}

	add := func(prefix string, s Stats) {
		for _, name := range statNames {
			header = append(header, prefix+name)
		}
		data = append(data, s.values()...)
	}
	add("rreturn_", Synthesize(r.Episodes.ReshapedReturnPerEpisode))
	add("num_frames_", Synthesize(r.Episodes.NumFramesPerEpisode))

	header = append(header, "entropy", "value", "policy_loss", "value_loss", "grad_norm")
	data = append(data, r.Losses.Entropy, r.Losses.Value, r.Losses.PolicyLoss, r.Losses.ValueLoss, r.Losses.GradNorm)

	add("return_", Synthesize(r.Episodes.ReturnPerEpisode))
	return header, data
}
