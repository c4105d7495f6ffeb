package core

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var ErrNoEnvironments = errors.New("parallel env needs at least one environment")

// ParallelEnv steps a fixed set of environments concurrently, one goroutine
// per environment per call. Environments whose episode ends are reset right
// away, so callers always see a live observation for every slot.
type ParallelEnv struct {
	envs []Environment
}

type VecStep struct {
	Observations []Observation
	Rewards      []float64
	Terminated   []bool
	Truncated    []bool
}

func (v *VecStep) Done(i int) bool {
	return v.Terminated[i] || v.Truncated[i]
}

func NewParallelEnv(envs []Environment) (*ParallelEnv, error) {
	if len(envs) == 0 {
		return nil, ErrNoEnvironments
	}
	return &ParallelEnv{envs: envs}, nil
}

func (p *ParallelEnv) Len() int {
	return len(p.envs)
}

func (p *ParallelEnv) ActionCount() int {
	return p.envs[0].ActionCount()
}

func (p *ParallelEnv) ObservationShape() (int, int) {
	return p.envs[0].ObservationShape()
}

func (p *ParallelEnv) Reset(ctx context.Context) ([]Observation, error) {
	obs := make([]Observation, len(p.envs))
	g, _ := errgroup.WithContext(ctx)
	for i, env := range p.envs {
		i, env := i, env
		g.Go(func() error {
			o, err := env.Reset()
			if err != nil {
				return fmt.Errorf("resetting environment %d: %w", i, err)
			}
			obs[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return obs, nil
}

func (p *ParallelEnv) Step(ctx context.Context, actions []Action) (*VecStep, error) {
	if len(actions) != len(p.envs) {
		return nil, fmt.Errorf("got %d actions for %d environments", len(actions), len(p.envs))
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := &VecStep{
		Observations: make([]Observation, len(p.envs)),
		Rewards:      make([]float64, len(p.envs)),
		Terminated:   make([]bool, len(p.envs)),
		Truncated:    make([]bool, len(p.envs)),
	}
	g, _ := errgroup.WithContext(ctx)
	for i, env := range p.envs {
		i, env := i, env
		g.Go(func() error {
			res, err := env.Step(actions[i])
			if err != nil {
				return fmt.Errorf("stepping environment %d: %w", i, err)
			}
			if res.Done() {
				obs, err := env.Reset()
				if err != nil {
					return fmt.Errorf("resetting environment %d: %w", i, err)
				}
				res.Observation = obs
			}
			out.Observations[i] = res.Observation
			out.Rewards[i] = res.Reward
			out.Terminated[i] = res.Terminated
			out.Truncated[i] = res.Truncated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
