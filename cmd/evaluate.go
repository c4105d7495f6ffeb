package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jesbu1/rl-starter-files/algos"
	"github.com/jesbu1/rl-starter-files/analysis"
	"github.com/jesbu1/rl-starter-files/common"
	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/envs/minigrid"
	"github.com/jesbu1/rl-starter-files/storage"
	"github.com/jesbu1/rl-starter-files/util"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/spf13/cobra"
)

func EvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a trained agent over a number of episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := interruptContext()
			defer done()

			return Evaluate(ctx, &flags.Eval, flags.Storage, cmd.OutOrStdout())
		},
	}
	addEvalFlags(cmd)
	return cmd
}

type episodeResult struct {
	Return float64
	Frames int
	err    error
}

func Evaluate(ctx context.Context, f *common.EvalFlags, storageRoot string, stdout io.Writer) error {
	if f.Env == "" || f.Model == "" {
		return fmt.Errorf("%w: env and model are required", common.ErrInvalidFlag)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	constructor, err := minigrid.Make(f.Env)
	if err != nil {
		return err
	}
	envs := core.MakeEnvironments(constructor, f.Procs, f.Seed)
	fmt.Fprint(stdout, "Environments loaded\n\n")

	status, err := storage.LoadStatus(storage.ModelDir(storageRoot, f.Model))
	if err != nil {
		return err
	}
	width, height := envs[0].ObservationShape()
	agent, err := algos.NewAgent(status, width, height, util.NewRand(f.Seed))
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, "Agent loaded\n\n")

	start := time.Now()
	results, err := runEpisodes(ctx, envs, agent, f.Episodes, f.Argmax)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	returns := make([]float64, len(results))
	frames := make([]float64, len(results))
	numFrames := 0
	for i, res := range results {
		returns[i] = res.Return
		frames[i] = float64(res.Frames)
		numFrames += res.Frames
	}
	rs, fs := analysis.Synthesize(returns), analysis.Synthesize(frames)
	fmt.Fprintf(stdout, "F %d | FPS %.0f | D %s | R:μσmM %.2f %.2f %.2f %.2f | F:μσmM %.1f %.1f %.1f %.1f\n",
		numFrames, float64(numFrames)/elapsed.Seconds(), util.FormatDuration(elapsed.Truncate(time.Second)),
		rs.Mean, rs.Std, rs.Min, rs.Max,
		fs.Mean, fs.Std, fs.Min, fs.Max,
	)

	if n := min(f.WorstEpisodes, len(results)); n > 0 {
		fmt.Fprintf(stdout, "\n%d worst episodes:\n", n)
		indexes := make([]int, len(results))
		for i := range indexes {
			indexes[i] = i
		}
		sort.SliceStable(indexes, func(a, b int) bool {
			return results[indexes[a]].Return < results[indexes[b]].Return
		})
		for _, i := range indexes[:n] {
			fmt.Fprintf(stdout, "- episode %d: R=%v, F=%d\n", i, results[i].Return, results[i].Frames)
		}
	}
	return nil
}

// runEpisodes plays episodes on every environment concurrently with a shared
// agent until n episodes have finished. Results are in completion order.
func runEpisodes(ctx context.Context, envs []core.Environment, agent *algos.Agent, n int, argmax bool) ([]episodeResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	worker := func(done <-chan struct{}, env core.Environment) <-chan episodeResult {
		out := make(chan episodeResult)
		send := func(res episodeResult) bool {
			select {
			case out <- res:
				return true
			case <-done:
				return false
			}
		}

		go func() {
			defer close(out)
			obs, err := env.Reset()
			if err != nil {
				send(episodeResult{err: err})
				return
			}
			ret, frames := 0.0, 0
			for {
				select {
				case <-done:
					return
				default:
				}

				actions, err := agent.Actions([]core.Observation{obs}, argmax)
				if err != nil {
					send(episodeResult{err: err})
					return
				}
				step, err := env.Step(actions[0])
				if err != nil {
					send(episodeResult{err: err})
					return
				}
				ret += step.Reward
				frames++
				obs = step.Observation
				if !step.Done() {
					continue
				}

				if !send(episodeResult{Return: ret, Frames: frames}) {
					return
				}
				ret, frames = 0, 0
				if obs, err = env.Reset(); err != nil {
					send(episodeResult{err: err})
					return
				}
			}
		}()
		return out
	}

	workers := make([]<-chan episodeResult, 0, len(envs))
	for _, env := range envs {
		workers = append(workers, worker(ctx.Done(), env))
	}

	results := make([]episodeResult, 0, n)
	for res := range channerics.Merge(ctx.Done(), workers...) {
		if res.err != nil {
			return nil, res.err
		}
		results = append(results, res)
		if len(results) == n {
			return results, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
