package analysis

import (
	"fmt"
	"time"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/util"
)

// ProgressAnalyzer keeps a live progress line up to date.
type ProgressAnalyzer struct {
	output      *util.ParallelOutput
	totalFrames int
}

var _ core.Analyzer = &ProgressAnalyzer{}

func NewProgressAnalyzer(output *util.ParallelOutput, totalFrames int) *ProgressAnalyzer {
	return &ProgressAnalyzer{
		output:      output,
		totalFrames: totalFrames,
	}
}

func (p *ProgressAnalyzer) Analyze(r *core.UpdateReport) error {
	p.output.Set(Progress(r, p.totalFrames))
	return nil
}

// Progress renders frames done, the mean return and an estimate of the time
// left at the current rate.
func Progress(r *core.UpdateReport, totalFrames int) string {
	pct := 100 * float64(r.NumFrames) / float64(totalFrames)
	eta := "?"
	if r.FPS > 0 {
		left := float64(totalFrames-r.NumFrames) / r.FPS
		eta = util.FormatDuration(time.Duration(max(left, 0) * float64(time.Second)))
	}
	return fmt.Sprintf(
		"[%5.1f%%] update %d | frames %d/%d | return %.2f | elapsed %s | eta %s",
		pct, r.Update, r.NumFrames, totalFrames,
		Synthesize(r.Episodes.ReturnPerEpisode).Mean,
		util.FormatDuration(r.Duration), eta,
	)
}
