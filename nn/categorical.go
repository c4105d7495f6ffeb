package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Categorical is the action distribution given by one row of logits.
type Categorical struct {
	Probs    []float64
	LogProbs []float64
}

func NewCategorical(logits []float64) Categorical {
	maxLogit := floats.Max(logits)
	sum := 0.0
	for _, l := range logits {
		sum += math.Exp(l - maxLogit)
	}
	logSum := maxLogit + math.Log(sum)

	c := Categorical{
		Probs:    make([]float64, len(logits)),
		LogProbs: make([]float64, len(logits)),
	}
	for i, l := range logits {
		c.LogProbs[i] = l - logSum
		c.Probs[i] = math.Exp(c.LogProbs[i])
	}
	return c
}

func (c Categorical) LogProb(action int) float64 {
	return c.LogProbs[action]
}

func (c Categorical) Entropy() float64 {
	h := 0.0
	for i, p := range c.Probs {
		if p > 0 {
			h -= p * c.LogProbs[i]
		}
	}
	return h
}

func (c Categorical) Sample(src rand.Source) int {
	return int(distuv.NewCategorical(c.Probs, src).Rand())
}

func (c Categorical) Argmax() int {
	return floats.MaxIdx(c.Probs)
}

// LogProbGrad is d log p(action) / d logits.
func (c Categorical) LogProbGrad(action int) []float64 {
	out := make([]float64, len(c.Probs))
	for i, p := range c.Probs {
		out[i] = -p
	}
	out[action] += 1
	return out
}

// EntropyGrad is d H / d logits.
func (c Categorical) EntropyGrad() []float64 {
	h := c.Entropy()
	out := make([]float64, len(c.Probs))
	for i, p := range c.Probs {
		out[i] = -p * (c.LogProbs[i] + h)
	}
	return out
}
