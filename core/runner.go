package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoProgress = errors.New("algorithm collected no frames")

// Trainer runs the collect/update loop. NumFrames and Update hold the resume
// point before Run and the progress after it.
type Trainer struct {
	Algorithm    Algorithm
	Analyzers    []Analyzer
	Checkpointer Checkpointer

	NumFrames int
	Update    int
}

// Run trains until config.Frames frames have been collected. When ctx is
// cancelled the loop stops between updates, unsaved progress is checkpointed
// and the context error is returned.
func (t *Trainer) Run(ctx context.Context, config *RunConfig) error {
	startFrames := t.NumFrames
	start := time.Now()
	dirty := false

	for t.NumFrames < config.Frames {
		select {
		case <-ctx.Done():
			return t.stop(ctx.Err(), dirty)
		default:
		}

		updateStart := time.Now()
		exps, episodes, err := t.Algorithm.CollectExperiences(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return t.stop(ctx.Err(), dirty)
			}
			return fmt.Errorf("collecting experiences: %w", err)
		}
		losses, err := t.Algorithm.UpdateParameters(exps)
		if err != nil {
			return fmt.Errorf("updating parameters: %w", err)
		}
		updateEnd := time.Now()

		if episodes.NumFrames <= 0 {
			return ErrNoProgress
		}
		t.NumFrames += episodes.NumFrames
		t.Update++
		dirty = true

		if config.LogInterval > 0 && t.Update%config.LogInterval == 0 {
			report := &UpdateReport{
				Update:      t.Update,
				NumFrames:   t.NumFrames,
				StartFrames: startFrames,
				FPS:         float64(episodes.NumFrames) / updateEnd.Sub(updateStart).Seconds(),
				Duration:    time.Since(start),
				Episodes:    episodes,
				Losses:      losses,
			}
			for _, a := range t.Analyzers {
				if err := a.Analyze(report); err != nil {
					return fmt.Errorf("analyzing update %d: %w", t.Update, err)
				}
			}
		}

		if config.SaveInterval > 0 && t.Update%config.SaveInterval == 0 {
			if err := t.checkpoint(); err != nil {
				return err
			}
			dirty = false
		}
	}
	return nil
}

func (t *Trainer) stop(cause error, dirty bool) error {
	if dirty {
		if err := t.checkpoint(); err != nil {
			return errors.Join(cause, err)
		}
	}
	return cause
}

func (t *Trainer) checkpoint() error {
	if t.Checkpointer == nil {
		return nil
	}
	if err := t.Checkpointer.Checkpoint(t.NumFrames, t.Update); err != nil {
		return fmt.Errorf("checkpointing update %d: %w", t.Update, err)
	}
	return nil
}
