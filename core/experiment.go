package core

import "time"

type RunConfig struct {
	// Frames is the number of environment frames to train for, across all
	// processes and including frames of resumed runs.
	Frames int
	// LogInterval is the number of updates between two reports.
	LogInterval int
	// SaveInterval is the number of updates between two checkpoints. Zero
	// disables periodic checkpoints.
	SaveInterval int
}

// UpdateReport is what analyzers see every LogInterval updates.
type UpdateReport struct {
	Update    int
	NumFrames int
	// StartFrames is the frame count the run resumed from.
	StartFrames int
	FPS         float64
	Duration    time.Duration

	Episodes *CollectLogs
	Losses   *UpdateLogs
}

type Analyzer interface {
	Analyze(*UpdateReport) error
}

type Checkpointer interface {
	Checkpoint(numFrames, update int) error
}
