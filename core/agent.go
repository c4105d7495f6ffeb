package core

import "context"

// Algorithm is a policy-optimization method. It gathers a rollout from its
// environments and then improves the model from that rollout.
type Algorithm interface {
	CollectExperiences(ctx context.Context) (*Experiences, *CollectLogs, error)
	UpdateParameters(*Experiences) (*UpdateLogs, error)
}

type CollectLogs struct {
	ReturnPerEpisode         []float64
	ReshapedReturnPerEpisode []float64
	NumFramesPerEpisode      []float64
	NumFrames                int
}

type UpdateLogs struct {
	Entropy    float64
	Value      float64
	PolicyLoss float64
	ValueLoss  float64
	GradNorm   float64
}
