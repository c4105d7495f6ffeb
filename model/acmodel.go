package model

import (
	"errors"
	"fmt"

	"github.com/jesbu1/rl-starter-files/nn"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

var ErrIncompatibleState = errors.New("model state is incompatible with the model")

const headSize = 64

// ACModel is a feed-forward actor-critic: a shared embedding followed by a
// policy head producing logits and a value head producing one scalar.
type ACModel struct {
	ObsSize     int
	ActionCount int
	HiddenSize  int

	embedding nn.Sequential
	actor     nn.Sequential
	critic    nn.Sequential
}

func NewACModel(obsSize, actionCount, hiddenSize int, r *rand.Rand) *ACModel {
	return &ACModel{
		ObsSize:     obsSize,
		ActionCount: actionCount,
		HiddenSize:  hiddenSize,
		embedding: nn.Sequential{
			nn.NewLinear("embedding.0", obsSize, hiddenSize, r),
			&nn.ReLU{},
		},
		actor: nn.Sequential{
			nn.NewLinear("actor.0", hiddenSize, headSize, r),
			&nn.Tanh{},
			nn.NewLinear("actor.2", headSize, actionCount, r),
		},
		critic: nn.Sequential{
			nn.NewLinear("critic.0", hiddenSize, headSize, r),
			&nn.Tanh{},
			nn.NewLinear("critic.2", headSize, 1, r),
		},
	}
}

// Forward returns one distribution and one value per row of x.
func (m *ACModel) Forward(x *mat.Dense) ([]nn.Categorical, []float64) {
	emb := m.embedding.Forward(x)
	logits := m.actor.Forward(emb)
	values := m.critic.Forward(emb)

	rows, _ := x.Dims()
	dists := make([]nn.Categorical, rows)
	vals := make([]float64, rows)
	for i := 0; i < rows; i++ {
		dists[i] = nn.NewCategorical(logits.RawRowView(i))
		vals[i] = values.At(i, 0)
	}
	return dists, vals
}

// Backward accumulates gradients for the batch of the last Forward call given
// the loss gradients with respect to the logits and the values.
func (m *ACModel) Backward(dLogits *mat.Dense, dValues []float64) {
	dv := mat.NewDense(len(dValues), 1, append([]float64(nil), dValues...))
	dEmb := m.actor.Backward(dLogits)
	dEmb.Add(dEmb, m.critic.Backward(dv))
	m.embedding.Backward(dEmb)
}

func (m *ACModel) Params() []*nn.Param {
	out := m.embedding.Params()
	out = append(out, m.actor.Params()...)
	return append(out, m.critic.Params()...)
}

func (m *ACModel) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

func (m *ACModel) String() string {
	return fmt.Sprintf(
		"ACModel(\n  (embedding): %v\n  (actor): %v\n  (critic): %v\n)",
		m.embedding, m.actor, m.critic,
	)
}

// State is the serializable form of the model parameters.
type State struct {
	ObsSize     int                  `json:"obs_size"`
	ActionCount int                  `json:"action_count"`
	HiddenSize  int                  `json:"hidden_size"`
	Params      map[string][]float64 `json:"params"`
}

func (m *ACModel) State() *State {
	s := &State{
		ObsSize:     m.ObsSize,
		ActionCount: m.ActionCount,
		HiddenSize:  m.HiddenSize,
		Params:      make(map[string][]float64),
	}
	for _, p := range m.Params() {
		s.Params[p.Name] = append([]float64(nil), p.Value.RawMatrix().Data...)
	}
	return s
}

func (m *ACModel) LoadState(s *State) error {
	if s.ObsSize != m.ObsSize || s.ActionCount != m.ActionCount || s.HiddenSize != m.HiddenSize {
		return fmt.Errorf(
			"%w: saved (obs=%d, actions=%d, hidden=%d), model (obs=%d, actions=%d, hidden=%d)",
			ErrIncompatibleState, s.ObsSize, s.ActionCount, s.HiddenSize, m.ObsSize, m.ActionCount, m.HiddenSize,
		)
	}
	for _, p := range m.Params() {
		values, ok := s.Params[p.Name]
		if !ok {
			return fmt.Errorf("%w: missing parameter %s", ErrIncompatibleState, p.Name)
		}
		data := p.Value.RawMatrix().Data
		if len(values) != len(data) {
			return fmt.Errorf("%w: parameter %s has %d values, want %d", ErrIncompatibleState, p.Name, len(values), len(data))
		}
		copy(data, values)
	}
	return nil
}
