package cmd

import (
	"github.com/jesbu1/rl-starter-files/common"
	"github.com/jesbu1/rl-starter-files/storage"
	"github.com/spf13/cobra"
)

var flags *common.Flags = newFlags()

func newFlags() *common.Flags {
	f := common.DefaultFlags()
	f.Storage = storage.StorageDir()
	return f
}

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "YAML file with flag values; flags given on the command line win")
	cmd.PersistentFlags().StringVar(&flags.Storage, "storage", flags.Storage, "Root directory of the model directories")
}

func addTrainFlags(cmd *cobra.Command) {
	t := &flags.Train
	fs := cmd.Flags()
	fs.StringVar(&t.Algo, "algo", t.Algo, "Algorithm to use: a2c | ppo (REQUIRED)")
	fs.StringVar(&t.Env, "env", t.Env, "Name of the environment to train on (REQUIRED)")
	fs.StringVar(&t.Model, "model", t.Model, "Name of the model (default: {ENV}_{ALGO}_seed{SEED}_{TIME})")
	fs.Int64Var(&t.Seed, "seed", t.Seed, "Random seed")
	fs.IntVar(&t.LogInterval, "log-interval", t.LogInterval, "Number of updates between two logs")
	fs.IntVar(&t.SaveInterval, "save-interval", t.SaveInterval, "Number of updates between two saves (0 means no saving)")
	fs.IntVar(&t.Procs, "procs", t.Procs, "Number of processes")
	fs.IntVar(&t.Frames, "frames", t.Frames, "Number of frames of training")

	fs.IntVar(&t.Epochs, "epochs", t.Epochs, "Number of epochs for PPO")
	fs.IntVar(&t.BatchSize, "batch-size", t.BatchSize, "Batch size for PPO")
	fs.IntVar(&t.FramesPerProc, "frames-per-proc", t.FramesPerProc, "Number of frames per process before update (0 means 5 for A2C and 128 for PPO)")
	fs.Float64Var(&t.Discount, "discount", t.Discount, "Discount factor")
	fs.Float64Var(&t.LR, "lr", t.LR, "Learning rate")
	fs.Float64Var(&t.GAELambda, "gae-lambda", t.GAELambda, "Lambda coefficient in GAE formula (1 means no gae)")
	fs.Float64Var(&t.EntropyCoef, "entropy-coef", t.EntropyCoef, "Entropy term coefficient")
	fs.Float64Var(&t.ValueLossCoef, "value-loss-coef", t.ValueLossCoef, "Value loss term coefficient")
	fs.Float64Var(&t.MaxGradNorm, "max-grad-norm", t.MaxGradNorm, "Maximum norm of gradient")
	fs.Float64Var(&t.OptimEps, "optim-eps", t.OptimEps, "Adam and RMSprop optimizer epsilon")
	fs.Float64Var(&t.OptimAlpha, "optim-alpha", t.OptimAlpha, "RMSprop optimizer alpha")
	fs.Float64Var(&t.ClipEps, "clip-eps", t.ClipEps, "Clipping epsilon for PPO")
	fs.IntVar(&t.Recurrence, "recurrence", t.Recurrence, "Number of time-steps gradient is backpropagated (only 1 is supported)")
	fs.BoolVar(&t.Text, "text", t.Text, "Add a bag of mission words to the model input")
	fs.IntVar(&t.HiddenSize, "hidden-size", t.HiddenSize, "Size of the observation embedding")

	fs.StringVar(&t.MetricsAddr, "metrics-addr", t.MetricsAddr, "Address to serve Prometheus metrics on (empty disables)")
	fs.BoolVar(&t.Live, "live", t.Live, "Show a live progress line instead of log lines when stdout is a terminal")
}

func addEvalFlags(cmd *cobra.Command) {
	e := &flags.Eval
	fs := cmd.Flags()
	fs.StringVar(&e.Env, "env", e.Env, "Name of the environment (REQUIRED)")
	fs.StringVar(&e.Model, "model", e.Model, "Name of the trained model (REQUIRED)")
	fs.IntVar(&e.Episodes, "episodes", e.Episodes, "Number of episodes of evaluation")
	fs.Int64Var(&e.Seed, "seed", e.Seed, "Random seed")
	fs.IntVar(&e.Procs, "procs", e.Procs, "Number of processes")
	fs.BoolVar(&e.Argmax, "argmax", e.Argmax, "Action with highest probability is selected")
	fs.IntVar(&e.WorstEpisodes, "worst-episodes-to-show", e.WorstEpisodes, "How many worst episodes to show")
}

func addVisualizeFlags(cmd *cobra.Command) {
	v := &flags.Visualize
	fs := cmd.Flags()
	fs.StringVar(&v.Env, "env", v.Env, "Name of the environment (REQUIRED)")
	fs.StringVar(&v.Model, "model", v.Model, "Name of the trained model (REQUIRED)")
	fs.Int64Var(&v.Seed, "seed", v.Seed, "Random seed")
	fs.IntVar(&v.Shift, "shift", v.Shift, "Number of times the environment is reset at the beginning")
	fs.BoolVar(&v.Argmax, "argmax", v.Argmax, "Select the action with highest probability")
	fs.DurationVar(&v.Pause, "pause", v.Pause, "Pause between two consecutive actions")
	fs.IntVar(&v.Episodes, "episodes", v.Episodes, "Number of episodes to visualize")
}
