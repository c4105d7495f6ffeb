package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jesbu1/rl-starter-files/algos"
	"github.com/jesbu1/rl-starter-files/analysis"
	"github.com/jesbu1/rl-starter-files/common"
	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/envs/minigrid"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"github.com/jesbu1/rl-starter-files/storage"
	"github.com/jesbu1/rl-starter-files/util"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an actor-critic agent with A2C or PPO",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := interruptContext()
			defer done()

			return Train(ctx, &flags.Train, flags.Storage, os.Args, cmd.OutOrStdout())
		},
	}
	addTrainFlags(cmd)
	return cmd
}

// Train runs or resumes a training run in the model directory named by f
// under storageRoot. It returns nil when ctx is cancelled after the run has
// been checkpointed.
func Train(ctx context.Context, f *common.TrainFlags, storageRoot string, argv []string, stdout io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	modelDir := storage.ModelDir(storageRoot, f.ModelName(time.Now()))

	live := f.Live && isTerminal(stdout)
	console := stdout
	if live {
		console = io.Discard
	}
	logger, closer, err := storage.TxtLogger(modelDir, console)
	if err != nil {
		return err
	}
	defer closer.Close()
	csvLogger, err := storage.NewCSVLogger(modelDir)
	if err != nil {
		return err
	}
	defer csvLogger.Close()
	if err := f.Record(modelDir); err != nil {
		return err
	}

	logger.Info(strings.Join(argv, " "))
	logger.Infof("%+v", *f)

	r := util.NewRand(f.Seed)
	logger.Infof("Device: %s", util.DeviceInfo())

	constructor, err := minigrid.Make(f.Env)
	if err != nil {
		return err
	}
	envs, err := core.NewParallelEnv(core.MakeEnvironments(constructor, f.Procs, f.Seed))
	if err != nil {
		return err
	}
	logger.Info("Environments loaded")

	status, err := storage.LoadStatus(modelDir)
	if errors.Is(err, storage.ErrNoStatus) {
		status = &storage.Status{}
	} else if err != nil {
		return err
	}
	if status.RunID == "" {
		status.RunID = uuid.NewString()
	}
	logger.Info("Training status loaded")

	width, height := envs.ObservationShape()
	p := preprocess.New(width, height, f.Text, status.Vocab)
	logger.Info("Observations preprocessor loaded")

	m := model.NewACModel(p.Size(), envs.ActionCount(), f.HiddenSize, r)
	if status.ModelState != nil {
		if err := m.LoadState(status.ModelState); err != nil {
			return err
		}
	}
	logger.Info("Model loaded")
	logger.Info(m)

	algo, optimizer, err := newAlgorithm(f, envs, m, p, r)
	if err != nil {
		return err
	}
	if status.OptimizerState != nil {
		if err := optimizer.LoadState(status.OptimizerState); err != nil {
			return err
		}
	}
	logger.Info("Optimizer loaded")

	analyzers := []core.Analyzer{
		analysis.NewTextAnalyzer(logger),
		analysis.NewCSVAnalyzer(csvLogger, status.NumFrames == 0 && csvLogger.Empty()),
	}

	if f.MetricsAddr != "" {
		metrics := analysis.NewMetricsAnalyzer(prometheus.Labels{"env": f.Env, "algo": f.Algo, "run_id": status.RunID})
		analyzers = append(analyzers, metrics)
		stop := serveMetrics(f.MetricsAddr, metrics.Handler(), logger)
		defer stop()
	}

	if live {
		printer := util.NewTerminalPrinter(stdout, 500*time.Millisecond)
		analyzers = append(analyzers, analysis.NewProgressAnalyzer(printer.NewOutput(), f.Frames))
		printer.Start(ctx)
		defer printer.Stop()
	}

	trainer := &core.Trainer{
		Algorithm: algo,
		Analyzers: analyzers,
		Checkpointer: &storage.StatusCheckpointer{
			ModelDir:  modelDir,
			RunID:     status.RunID,
			Model:     m,
			Optimizer: optimizer,
			Vocab:     p.Vocab,
			Logger:    logger,
		},
		NumFrames: status.NumFrames,
		Update:    status.Update,
	}
	err = trainer.Run(ctx, &core.RunConfig{
		Frames:       f.Frames,
		LogInterval:  f.LogInterval,
		SaveInterval: f.SaveInterval,
	})
	if errors.Is(err, context.Canceled) {
		logger.Infof("Training interrupted at update %d, %d frames", trainer.Update, trainer.NumFrames)
		return nil
	}
	return err
}

func newAlgorithm(f *common.TrainFlags, envs *core.ParallelEnv, m *model.ACModel, p *preprocess.ObssPreprocessor, r *rand.Rand) (core.Algorithm, nn.Optimizer, error) {
	config := algos.Config{
		FramesPerProc: f.FramesPerProc,
		Discount:      f.Discount,
		LR:            f.LR,
		GAELambda:     f.GAELambda,
		EntropyCoef:   f.EntropyCoef,
		ValueLossCoef: f.ValueLossCoef,
		MaxGradNorm:   f.MaxGradNorm,
		Recurrence:    f.Recurrence,
	}
	switch f.Algo {
	case "a2c":
		a, err := algos.NewA2C(envs, m, p, config, f.OptimAlpha, f.OptimEps, r)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Optimizer(), nil
	case "ppo":
		a, err := algos.NewPPO(envs, m, p, algos.PPOConfig{
			Config:    config,
			Epochs:    f.Epochs,
			BatchSize: f.BatchSize,
			ClipEps:   f.ClipEps,
			AdamEps:   f.OptimEps,
		}, r)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Optimizer(), nil
	}
	return nil, nil, fmt.Errorf("%w: incorrect algorithm name %q", common.ErrInvalidFlag, f.Algo)
}

// serveMetrics serves handler on addr until the returned function is called.
func serveMetrics(addr string, handler http.Handler, logger logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnf("Metrics server stopped: %v", err)
		}
	}()
	logger.Infof("Serving metrics on http://%s/metrics", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
