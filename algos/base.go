package algos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

var ErrRecurrence = errors.New("recurrent models are not supported, recurrence must be 1")

// RewardShaper rewrites the reward used for learning. Episode returns are
// always reported on the raw reward.
type RewardShaper func(obs core.Observation, action core.Action, reward float64, done bool) float64

type Config struct {
	FramesPerProc int
	Discount      float64
	LR            float64
	GAELambda     float64
	EntropyCoef   float64
	ValueLossCoef float64
	MaxGradNorm   float64
	Recurrence    int
	ReshapeReward RewardShaper
}

func (c *Config) validate() error {
	if c.Recurrence != 1 {
		return ErrRecurrence
	}
	if c.FramesPerProc < 1 {
		return fmt.Errorf("frames per process must be positive, got %d", c.FramesPerProc)
	}
	return nil
}

// baseAlgo collects rollouts on a ParallelEnv and keeps per-process episode
// statistics across collections.
type baseAlgo struct {
	envs       *core.ParallelEnv
	model      *model.ACModel
	preprocess *preprocess.ObssPreprocessor
	config     Config
	rand       *rand.Rand

	obs  []core.Observation
	mask []float64

	episodeReturn         []float64
	episodeReshapedReturn []float64
	episodeNumFrames      []float64

	doneCounter       int
	logReturn         []float64
	logReshapedReturn []float64
	logNumFrames      []float64
}

func newBaseAlgo(envs *core.ParallelEnv, m *model.ACModel, p *preprocess.ObssPreprocessor, config Config, r *rand.Rand) (*baseAlgo, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	procs := envs.Len()
	b := &baseAlgo{
		envs:                  envs,
		model:                 m,
		preprocess:            p,
		config:                config,
		rand:                  r,
		mask:                  make([]float64, procs),
		episodeReturn:         make([]float64, procs),
		episodeReshapedReturn: make([]float64, procs),
		episodeNumFrames:      make([]float64, procs),
		logReturn:             make([]float64, procs),
		logReshapedReturn:     make([]float64, procs),
		logNumFrames:          make([]float64, procs),
	}
	for i := range b.mask {
		b.mask[i] = 1
	}
	return b, nil
}

func (b *baseAlgo) CollectExperiences(ctx context.Context) (*core.Experiences, *core.CollectLogs, error) {
	if b.obs == nil {
		obs, err := b.envs.Reset(ctx)
		if err != nil {
			return nil, nil, err
		}
		b.obs = obs
	}

	T, P := b.config.FramesPerProc, b.envs.Len()
	obss := make([]*mat.Dense, T)
	actions := make([][]int, T)
	values := make([][]float64, T)
	rewards := make([][]float64, T)
	masks := make([][]float64, T)
	logProbs := make([][]float64, T)

	for i := 0; i < T; i++ {
		x, err := b.preprocess.Preprocess(b.obs)
		if err != nil {
			return nil, nil, err
		}
		dists, vals := b.model.Forward(x)

		acts := make([]core.Action, P)
		actions[i] = make([]int, P)
		logProbs[i] = make([]float64, P)
		for j, d := range dists {
			a := d.Sample(b.rand)
			acts[j] = core.Action(a)
			actions[i][j] = a
			logProbs[i][j] = d.LogProb(a)
		}

		step, err := b.envs.Step(ctx, acts)
		if err != nil {
			return nil, nil, err
		}

		obss[i] = x
		masks[i] = b.mask
		b.mask = make([]float64, P)
		values[i] = vals
		rewards[i] = make([]float64, P)
		for j := 0; j < P; j++ {
			done := step.Done(j)
			if !done {
				b.mask[j] = 1
			}
			r := step.Rewards[j]
			if b.config.ReshapeReward != nil {
				r = b.config.ReshapeReward(step.Observations[j], acts[j], r, done)
			}
			rewards[i][j] = r

			b.episodeReturn[j] += step.Rewards[j]
			b.episodeReshapedReturn[j] += r
			b.episodeNumFrames[j]++
			if done {
				b.doneCounter++
				b.logReturn = append(b.logReturn, b.episodeReturn[j])
				b.logReshapedReturn = append(b.logReshapedReturn, b.episodeReshapedReturn[j])
				b.logNumFrames = append(b.logNumFrames, b.episodeNumFrames[j])
			}
			b.episodeReturn[j] *= b.mask[j]
			b.episodeReshapedReturn[j] *= b.mask[j]
			b.episodeNumFrames[j] *= b.mask[j]
		}
		b.obs = step.Observations
	}

	x, err := b.preprocess.Preprocess(b.obs)
	if err != nil {
		return nil, nil, err
	}
	_, nextValues := b.model.Forward(x)

	advantages := make([][]float64, T)
	for i := T - 1; i >= 0; i-- {
		advantages[i] = make([]float64, P)
		for j := 0; j < P; j++ {
			nextMask, nextValue, nextAdvantage := b.mask[j], nextValues[j], 0.0
			if i < T-1 {
				nextMask = masks[i+1][j]
				nextValue = values[i+1][j]
				nextAdvantage = advantages[i+1][j]
			}
			delta := rewards[i][j] + b.config.Discount*nextValue*nextMask - values[i][j]
			advantages[i][j] = delta + b.config.Discount*b.config.GAELambda*nextAdvantage*nextMask
		}
	}

	n := T * P
	exps := &core.Experiences{
		Obs:        mat.NewDense(n, b.preprocess.Size(), nil),
		Actions:    make([]int, n),
		Values:     make([]float64, n),
		Rewards:    make([]float64, n),
		Advantages: make([]float64, n),
		Returns:    make([]float64, n),
		LogProbs:   make([]float64, n),
	}
	for j := 0; j < P; j++ {
		for i := 0; i < T; i++ {
			k := j*T + i
			exps.Obs.SetRow(k, obss[i].RawRowView(j))
			exps.Actions[k] = actions[i][j]
			exps.Values[k] = values[i][j]
			exps.Rewards[k] = rewards[i][j]
			exps.Advantages[k] = advantages[i][j]
			exps.Returns[k] = values[i][j] + advantages[i][j]
			exps.LogProbs[k] = logProbs[i][j]
		}
	}

	keep := max(b.doneCounter, P)
	logs := &core.CollectLogs{
		ReturnPerEpisode:         tail(b.logReturn, keep),
		ReshapedReturnPerEpisode: tail(b.logReshapedReturn, keep),
		NumFramesPerEpisode:      tail(b.logNumFrames, keep),
		NumFrames:                n,
	}
	b.doneCounter = 0
	b.logReturn = tail(b.logReturn, P)
	b.logReshapedReturn = tail(b.logReshapedReturn, P)
	b.logNumFrames = tail(b.logNumFrames, P)
	return exps, logs, nil
}

func tail(xs []float64, n int) []float64 {
	if len(xs) > n {
		xs = xs[len(xs)-n:]
	}
	return append([]float64(nil), xs...)
}

// forward evaluates the model on a batch and returns the average
// entropy and value together with the distributions needed for the loss.
func (b *baseAlgo) forward(exps *core.Experiences) ([]nn.Categorical, []float64, float64, float64) {
	dists, values := b.model.Forward(exps.Obs)
	entropy, value := 0.0, 0.0
	for k, d := range dists {
		entropy += d.Entropy()
		value += values[k]
	}
	n := float64(len(dists))
	return dists, values, entropy / n, value / n
}

// step backpropagates the loss gradients, clips them and applies the
// optimizer. It returns the gradient norm before clipping.
func (b *baseAlgo) step(opt nn.Optimizer, dLogits *mat.Dense, dValues []float64) float64 {
	b.model.ZeroGrad()
	b.model.Backward(dLogits, dValues)
	params := b.model.Params()
	gradNorm := nn.ClipGradNorm(params, b.config.MaxGradNorm)
	opt.Step(params)
	return gradNorm
}

// addEntropyGradient adds -coef/n * dH/dlogits to row.
func addEntropyGradient(row []float64, d nn.Categorical, coef, n float64) {
	for a, g := range d.EntropyGrad() {
		row[a] -= coef * g / n
	}
}
