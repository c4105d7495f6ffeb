package algos

import (
	"errors"
	"sync"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"github.com/jesbu1/rl-starter-files/storage"
	"golang.org/x/exp/rand"
)

var ErrNoModel = errors.New("status has no model state")

// Agent picks actions with a trained model. It is safe for concurrent use.
type Agent struct {
	mu         sync.Mutex
	model      *model.ACModel
	preprocess *preprocess.ObssPreprocessor
	rand       *rand.Rand
}

// NewAgent rebuilds the model saved in status for observations of the given
// shape. Whether missions are fed to the model is read from the saved input
// size.
func NewAgent(status *storage.Status, width, height int, r *rand.Rand) (*Agent, error) {
	s := status.ModelState
	if s == nil {
		return nil, ErrNoModel
	}
	text := s.ObsSize > width*height*3
	p := preprocess.New(width, height, text, status.Vocab)

	m := model.NewACModel(p.Size(), s.ActionCount, s.HiddenSize, r)
	if err := m.LoadState(s); err != nil {
		return nil, err
	}
	return &Agent{
		model:      m,
		preprocess: p,
		rand:       r,
	}, nil
}

// Actions returns one action per observation, sampled from the policy or its
// most likely action when argmax is set.
func (a *Agent) Actions(obss []core.Observation, argmax bool) ([]core.Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	x, err := a.preprocess.Preprocess(obss)
	if err != nil {
		return nil, err
	}
	dists, _ := a.model.Forward(x)
	actions := make([]core.Action, len(dists))
	for i, d := range dists {
		if argmax {
			actions[i] = core.Action(d.Argmax())
		} else {
			actions[i] = core.Action(d.Sample(a.rand))
		}
	}
	return actions, nil
}
