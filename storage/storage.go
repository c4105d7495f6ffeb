package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jesbu1/rl-starter-files/model"
	"github.com/jesbu1/rl-starter-files/nn"
	"github.com/jesbu1/rl-starter-files/util"
	pkgerrors "github.com/pkg/errors"
)

const statusFile = "status.json.sz"

var ErrNoStatus = errors.New("no training status found")

// StorageDir is the storage root: $RL_STORAGE if set, "storage" otherwise.
func StorageDir() string {
	if d := os.Getenv("RL_STORAGE"); d != "" {
		return d
	}
	return "storage"
}

func ModelDir(root, name string) string {
	return filepath.Join(root, name)
}

func StatusPath(modelDir string) string {
	return filepath.Join(modelDir, statusFile)
}

// Status is everything needed to resume training or evaluate a model.
type Status struct {
	RunID          string             `json:"run_id"`
	NumFrames      int                `json:"num_frames"`
	Update         int                `json:"update"`
	ModelState     *model.State       `json:"model_state,omitempty"`
	OptimizerState *nn.OptimizerState `json:"optimizer_state,omitempty"`
	Vocab          map[string]int     `json:"vocab,omitempty"`
}

func SaveStatus(s *Status, modelDir string) error {
	return pkgerrors.Wrap(util.SaveSnappyJson(StatusPath(modelDir), s), "saving status")
}

func LoadStatus(modelDir string) (*Status, error) {
	s := &Status{}
	err := util.LoadSnappyJson(StatusPath(modelDir), s)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoStatus
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading status")
	}
	return s, nil
}
