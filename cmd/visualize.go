package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jesbu1/rl-starter-files/algos"
	"github.com/jesbu1/rl-starter-files/common"
	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/envs/minigrid"
	"github.com/jesbu1/rl-starter-files/storage"
	"github.com/jesbu1/rl-starter-files/util"
	"github.com/spf13/cobra"
)

func VisualizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Watch a trained agent play in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := interruptContext()
			defer done()

			return Visualize(ctx, &flags.Visualize, flags.Storage, cmd.OutOrStdout())
		},
	}
	addVisualizeFlags(cmd)
	return cmd
}

func Visualize(ctx context.Context, f *common.VisualizeFlags, storageRoot string, stdout io.Writer) error {
	if f.Env == "" || f.Model == "" {
		return fmt.Errorf("%w: env and model are required", common.ErrInvalidFlag)
	}

	constructor, err := minigrid.Make(f.Env)
	if err != nil {
		return err
	}
	env := constructor.New(f.Seed)
	for i := 0; i < f.Shift; i++ {
		if _, err := env.Reset(); err != nil {
			return err
		}
	}
	fmt.Fprint(stdout, "Environment loaded\n\n")

	status, err := storage.LoadStatus(storage.ModelDir(storageRoot, f.Model))
	if err != nil {
		return err
	}
	width, height := env.ObservationShape()
	agent, err := algos.NewAgent(status, width, height, util.NewRand(f.Seed))
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, "Agent loaded\n\n")

	for episode := 1; episode <= f.Episodes; episode++ {
		printer := util.NewTerminalPrinter(stdout, f.Pause)
		obs, err := env.Reset()
		if err != nil {
			return err
		}
		ret := 0.0
		for {
			printer.Write(fmt.Sprintf("%s\nepisode %d/%d | return %.2f\n", env.Render(), episode, f.Episodes, ret))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(f.Pause):
			}

			actions, err := agent.Actions([]core.Observation{obs}, f.Argmax)
			if err != nil {
				return err
			}
			step, err := env.Step(actions[0])
			if err != nil {
				return err
			}
			ret += step.Reward
			obs = step.Observation
			if step.Done() {
				break
			}
		}
		printer.Write(fmt.Sprintf("%s\nepisode %d/%d | return %.2f\n", env.Render(), episode, f.Episodes, ret))
	}
	return nil
}
