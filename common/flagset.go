package common

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jesbu1/rl-starter-files/util"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrInvalidFlag = errors.New("invalid flag value")

type Flags struct {
	ConfigFile string `yaml:"-"`
	Storage    string `yaml:"storage"`

	Train     TrainFlags     `yaml:"train"`
	Eval      EvalFlags      `yaml:"evaluate"`
	Visualize VisualizeFlags `yaml:"visualize"`
}

type TrainFlags struct {
	Algo         string `yaml:"algo"`
	Env          string `yaml:"env"`
	Model        string `yaml:"model"`
	Seed         int64  `yaml:"seed"`
	LogInterval  int    `yaml:"log-interval"`
	SaveInterval int    `yaml:"save-interval"`
	Procs        int    `yaml:"procs"`
	Frames       int    `yaml:"frames"`

	Epochs        int     `yaml:"epochs"`
	BatchSize     int     `yaml:"batch-size"`
	FramesPerProc int     `yaml:"frames-per-proc"`
	Discount      float64 `yaml:"discount"`
	LR            float64 `yaml:"lr"`
	GAELambda     float64 `yaml:"gae-lambda"`
	EntropyCoef   float64 `yaml:"entropy-coef"`
	ValueLossCoef float64 `yaml:"value-loss-coef"`
	MaxGradNorm   float64 `yaml:"max-grad-norm"`
	OptimEps      float64 `yaml:"optim-eps"`
	OptimAlpha    float64 `yaml:"optim-alpha"`
	ClipEps       float64 `yaml:"clip-eps"`
	Recurrence    int     `yaml:"recurrence"`
	Text          bool    `yaml:"text"`
	HiddenSize    int     `yaml:"hidden-size"`

	MetricsAddr string `yaml:"metrics-addr"`
	Live        bool   `yaml:"live"`
}

type EvalFlags struct {
	Env           string `yaml:"env"`
	Model         string `yaml:"model"`
	Episodes      int    `yaml:"episodes"`
	Seed          int64  `yaml:"seed"`
	Procs         int    `yaml:"procs"`
	Argmax        bool   `yaml:"argmax"`
	WorstEpisodes int    `yaml:"worst-episodes-to-show"`
}

type VisualizeFlags struct {
	Env      string        `yaml:"env"`
	Model    string        `yaml:"model"`
	Seed     int64         `yaml:"seed"`
	Shift    int           `yaml:"shift"`
	Argmax   bool          `yaml:"argmax"`
	Pause    time.Duration `yaml:"pause"`
	Episodes int           `yaml:"episodes"`
}

func DefaultFlags() *Flags {
	return &Flags{
		Storage: "storage",
		Train: TrainFlags{
			Seed:          1,
			LogInterval:   1,
			SaveInterval:  0,
			Procs:         16,
			Frames:        10_000_000,
			Epochs:        4,
			BatchSize:     256,
			FramesPerProc: 0,
			Discount:      0.99,
			LR:            7e-4,
			GAELambda:     0.95,
			EntropyCoef:   0.01,
			ValueLossCoef: 0.5,
			MaxGradNorm:   0.5,
			OptimEps:      1e-5,
			OptimAlpha:    0.99,
			ClipEps:       0.2,
			Recurrence:    1,
			HiddenSize:    64,
		},
		Eval: EvalFlags{
			Episodes:      100,
			Procs:         16,
			WorstEpisodes: 10,
		},
		Visualize: VisualizeFlags{
			Pause:    100 * time.Millisecond,
			Episodes: 10,
		},
	}
}

// Validate checks the training flags and fills in the algorithm dependent
// frames per process when it was left at 0.
func (t *TrainFlags) Validate() error {
	switch t.Algo {
	case "a2c":
		if t.FramesPerProc == 0 {
			t.FramesPerProc = 5
		}
	case "ppo":
		if t.FramesPerProc == 0 {
			t.FramesPerProc = 128
		}
		if t.Epochs < 1 {
			return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidFlag, t.Epochs)
		}
		if t.BatchSize < 0 {
			return fmt.Errorf("%w: batch-size must not be negative, got %d", ErrInvalidFlag, t.BatchSize)
		}
	default:
		return fmt.Errorf("%w: incorrect algorithm name %q", ErrInvalidFlag, t.Algo)
	}

	if t.Env == "" {
		return fmt.Errorf("%w: env is required", ErrInvalidFlag)
	}
	if t.Procs < 1 {
		return fmt.Errorf("%w: procs must be positive, got %d", ErrInvalidFlag, t.Procs)
	}
	if t.FramesPerProc < 1 {
		return fmt.Errorf("%w: frames-per-proc must be positive, got %d", ErrInvalidFlag, t.FramesPerProc)
	}
	if t.Recurrence != 1 {
		return fmt.Errorf("%w: recurrence %d needs a recurrent model, which is not available", ErrInvalidFlag, t.Recurrence)
	}
	if t.LogInterval < 1 {
		return fmt.Errorf("%w: log-interval must be positive, got %d", ErrInvalidFlag, t.LogInterval)
	}
	if t.SaveInterval < 0 {
		return fmt.Errorf("%w: save-interval must not be negative, got %d", ErrInvalidFlag, t.SaveInterval)
	}
	return nil
}

// ModelName returns the model directory name, generating
// {env}_{algo}_{yymmddHHMMSS} when none was given.
func (t *TrainFlags) ModelName(now time.Time) string {
	if t.Model != "" {
		return t.Model
	}
	return fmt.Sprintf("%s_%s_%s", t.Env, t.Algo, now.Format("060102150405"))
}

// Record saves the training flags as config.yaml in modelDir.
func (t *TrainFlags) Record(modelDir string) error {
	return util.SaveYaml(filepath.Join(modelDir, "config.yaml"), t)
}

func (e *EvalFlags) Validate() error {
	if e.Episodes < 1 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidFlag, e.Episodes)
	}
	if e.Procs < 1 {
		return fmt.Errorf("%w: procs must be positive, got %d", ErrInvalidFlag, e.Procs)
	}
	return nil
}

// ApplyConfigFile sets every flag in fs that was not given on the command
// line and has a key of the same name in the YAML file at path.
func ApplyConfigFile(path string, fs *pflag.FlagSet) error {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return pkgerrors.Wrapf(err, "reading config %s", path)
	}

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !vp.IsSet(f.Name) {
			return
		}
		if setErr := fs.Set(f.Name, vp.GetString(f.Name)); setErr != nil {
			err = fmt.Errorf("%w: %s from %s: %v", ErrInvalidFlag, f.Name, path, setErr)
		}
	})
	return err
}
