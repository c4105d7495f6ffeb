package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/jesbu1/rl-starter-files/common"
	"github.com/spf13/cobra"
)

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rl",
		Short:         "Train, evaluate and visualize actor-critic agents on grid worlds",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return UpdateFlags(cmd)
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		TrainCommand(),
		EvaluateCommand(),
		VisualizeCommand(),
	)

	return cmd
}

// UpdateFlags fills flags that were not given on the command line from the
// --config file, if any.
func UpdateFlags(cmd *cobra.Command) error {
	if flags.ConfigFile == "" {
		return nil
	}
	return common.ApplyConfigFile(flags.ConfigFile, cmd.Flags())
}

// interruptContext is cancelled on SIGINT or when the returned done function
// is called.
func interruptContext() (context.Context, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	doneCh := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}
