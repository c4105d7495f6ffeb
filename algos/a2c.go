package algos

import (
	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// A2C is synchronous advantage actor-critic: one gradient step per rollout,
// optimized with RMSprop.
type A2C struct {
	*baseAlgo
	optimizer *nn.RMSprop
}

var _ core.Algorithm = &A2C{}

func NewA2C(envs *core.ParallelEnv, m *model.ACModel, p *preprocess.ObssPreprocessor, config Config, alpha, eps float64, r *rand.Rand) (*A2C, error) {
	base, err := newBaseAlgo(envs, m, p, config, r)
	if err != nil {
		return nil, err
	}
	return &A2C{
		baseAlgo:  base,
		optimizer: nn.NewRMSprop(config.LR, alpha, eps),
	}, nil
}

func (a *A2C) Optimizer() nn.Optimizer {
	return a.optimizer
}

func (a *A2C) UpdateParameters(exps *core.Experiences) (*core.UpdateLogs, error) {
	dists, values, entropy, value := a.forward(exps)
	n := float64(exps.Len())

	dLogits := mat.NewDense(exps.Len(), a.model.ActionCount, nil)
	dValues := make([]float64, exps.Len())
	policyLoss, valueLoss := 0.0, 0.0
	for k, d := range dists {
		adv := exps.Advantages[k]
		policyLoss -= d.LogProb(exps.Actions[k]) * adv
		diff := values[k] - exps.Returns[k]
		valueLoss += diff * diff

		row := dLogits.RawRowView(k)
		for j, g := range d.LogProbGrad(exps.Actions[k]) {
			row[j] = -adv * g / n
		}
		addEntropyGradient(row, d, a.config.EntropyCoef, n)
		dValues[k] = a.config.ValueLossCoef * 2 * diff / n
	}

	gradNorm := a.step(a.optimizer, dLogits, dValues)
	return &core.UpdateLogs{
		Entropy:    entropy,
		Value:      value,
		PolicyLoss: policyLoss / n,
		ValueLoss:  valueLoss / n,
		GradNorm:   gradNorm,
	}, nil
}
