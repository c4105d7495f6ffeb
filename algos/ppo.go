package algos

import (
	"fmt"
	"math"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type PPOConfig struct {
	Config
	Epochs    int
	BatchSize int
	ClipEps   float64
	AdamEps   float64
}

// PPO runs several epochs of shuffled mini-batch updates per rollout with a
// clipped surrogate objective and a clipped value loss, optimized with Adam.
type PPO struct {
	*baseAlgo
	epochs    int
	batchSize int
	clipEps   float64
	optimizer *nn.Adam
}

var _ core.Algorithm = &PPO{}

func NewPPO(envs *core.ParallelEnv, m *model.ACModel, p *preprocess.ObssPreprocessor, config PPOConfig, r *rand.Rand) (*PPO, error) {
	if config.BatchSize < 0 || config.Epochs < 1 {
		return nil, fmt.Errorf("ppo needs positive epochs and a non-negative batch size, got %d and %d", config.Epochs, config.BatchSize)
	}
	base, err := newBaseAlgo(envs, m, p, config.Config, r)
	if err != nil {
		return nil, err
	}
	return &PPO{
		baseAlgo:  base,
		epochs:    config.Epochs,
		batchSize: config.BatchSize,
		clipEps:   config.ClipEps,
		optimizer: nn.NewAdam(config.LR, config.AdamEps),
	}, nil
}

func (p *PPO) Optimizer() nn.Optimizer {
	return p.optimizer
}

// batches splits a random permutation of the transitions into chunks of
// batchSize; the last chunk may be shorter. A batchSize of 0 uses all n
// transitions in one batch.
func (p *PPO) batches(n int) [][]int {
	perm := p.rand.Perm(n)
	size := p.batchSize
	if size == 0 {
		size = n
	}
	out := make([][]int, 0, (n+size-1)/size)
	for i := 0; i < n; i += size {
		out = append(out, perm[i:min(i+size, n)])
	}
	return out
}

func (p *PPO) UpdateParameters(exps *core.Experiences) (*core.UpdateLogs, error) {
	var entropies, values, policyLosses, valueLosses, gradNorms []float64

	for epoch := 0; epoch < p.epochs; epoch++ {
		for _, idx := range p.batches(exps.Len()) {
			sb := exps.Batch(idx)
			logs := p.updateBatch(sb)
			entropies = append(entropies, logs.Entropy)
			values = append(values, logs.Value)
			policyLosses = append(policyLosses, logs.PolicyLoss)
			valueLosses = append(valueLosses, logs.ValueLoss)
			gradNorms = append(gradNorms, logs.GradNorm)
		}
	}

	return &core.UpdateLogs{
		Entropy:    stat.Mean(entropies, nil),
		Value:      stat.Mean(values, nil),
		PolicyLoss: stat.Mean(policyLosses, nil),
		ValueLoss:  stat.Mean(valueLosses, nil),
		GradNorm:   stat.Mean(gradNorms, nil),
	}, nil
}

func (p *PPO) updateBatch(sb *core.Experiences) *core.UpdateLogs {
	dists, values, entropy, value := p.forward(sb)
	n := float64(sb.Len())

	dLogits := mat.NewDense(sb.Len(), p.model.ActionCount, nil)
	dValues := make([]float64, sb.Len())
	policyLoss, valueLoss := 0.0, 0.0
	for k, d := range dists {
		adv := sb.Advantages[k]
		ratio := math.Exp(d.LogProb(sb.Actions[k]) - sb.LogProbs[k])
		surr1 := ratio * adv
		surr2 := clamp(ratio, 1-p.clipEps, 1+p.clipEps) * adv
		policyLoss -= math.Min(surr1, surr2)

		row := dLogits.RawRowView(k)
		// The clipped branch only wins when the ratio is outside the trust
		// region, where it is constant.
		if surr1 <= surr2 {
			for j, g := range d.LogProbGrad(sb.Actions[k]) {
				row[j] = -adv * ratio * g / n
			}
		}
		addEntropyGradient(row, d, p.config.EntropyCoef, n)

		delta := values[k] - sb.Values[k]
		valueClipped := sb.Values[k] + clamp(delta, -p.clipEps, p.clipEps)
		vSurr1 := (values[k] - sb.Returns[k]) * (values[k] - sb.Returns[k])
		vSurr2 := (valueClipped - sb.Returns[k]) * (valueClipped - sb.Returns[k])
		if vSurr1 >= vSurr2 {
			valueLoss += vSurr1
			dValues[k] = 2 * (values[k] - sb.Returns[k])
		} else {
			valueLoss += vSurr2
			if math.Abs(delta) < p.clipEps {
				dValues[k] = 2 * (valueClipped - sb.Returns[k])
			}
		}
		dValues[k] *= p.config.ValueLossCoef / n
	}

	gradNorm := p.step(p.optimizer, dLogits, dValues)
	return &core.UpdateLogs{
		Entropy:    entropy,
		Value:      value,
		PolicyLoss: policyLoss / n,
		ValueLoss:  valueLoss / n,
		GradNorm:   gradNorm,
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
