package storage

import (
	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/preprocess"
	"github.com/sirupsen/logrus"
)

// StatusCheckpointer saves the model, optimizer and vocabulary of a training
// run to ModelDir.
type StatusCheckpointer struct {
	ModelDir  string
	RunID     string
	Model     *model.ACModel
	Optimizer nn.Optimizer
	Vocab     *preprocess.Vocabulary
	Logger    logrus.FieldLogger
}

var _ core.Checkpointer = &StatusCheckpointer{}

func (s *StatusCheckpointer) Checkpoint(numFrames, update int) error {
	status := &Status{
		RunID:          s.RunID,
		NumFrames:      numFrames,
		Update:         update,
		ModelState:     s.Model.State(),
		OptimizerState: s.Optimizer.State(),
	}
	if s.Vocab != nil {
		status.Vocab = s.Vocab.Map()
	}
	if err := SaveStatus(status, s.ModelDir); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("Status saved")
	}
	return nil
}
