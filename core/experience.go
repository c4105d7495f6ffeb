package core

import "gonum.org/v1/gonum/mat"

// Experiences is a flattened rollout. Row k of Obs and entry k of every slice
// describe the same transition; transitions of one process are contiguous.
type Experiences struct {
	Obs        *mat.Dense
	Actions    []int
	Values     []float64
	Rewards    []float64
	Advantages []float64
	Returns    []float64
	LogProbs   []float64
}

func (e *Experiences) Len() int {
	return len(e.Actions)
}

// Batch copies the transitions at the given indexes.
func (e *Experiences) Batch(indexes []int) *Experiences {
	_, cols := e.Obs.Dims()
	out := &Experiences{
		Obs:        mat.NewDense(len(indexes), cols, nil),
		Actions:    make([]int, len(indexes)),
		Values:     make([]float64, len(indexes)),
		Rewards:    make([]float64, len(indexes)),
		Advantages: make([]float64, len(indexes)),
		Returns:    make([]float64, len(indexes)),
		LogProbs:   make([]float64, len(indexes)),
	}
	for k, idx := range indexes {
		out.Obs.SetRow(k, e.Obs.RawRowView(idx))
		out.Actions[k] = e.Actions[idx]
		out.Values[k] = e.Values[idx]
		out.Rewards[k] = e.Rewards[idx]
		out.Advantages[k] = e.Advantages[idx]
		out.Returns[k] = e.Returns[idx]
		out.LogProbs[k] = e.LogProbs[idx]
	}
	return out
}
