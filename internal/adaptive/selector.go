// Package adaptive chooses the next question difficulty from the rolling
// trend of recent combined scores.
package adaptive

import (
	"github.com/vinsol/interviewsim/internal/config"
	"github.com/vinsol/interviewsim/internal/model"
)

// Selector is an explicit finite-state value threaded through a session.
// It holds the current difficulty and the recent combined scores, newest
// last, trimmed to the configured window.
type Selector struct {
	Level  model.Difficulty
	Recent []float64

	cfg config.Adaptive
}

// New creates a selector at the given starting difficulty. An invalid
// initial level falls back to the configured default.
func New(cfg config.Adaptive, initial model.Difficulty) Selector {
	if !initial.Valid() {
		initial = cfg.InitialDifficulty
	}
	return Selector{Level: initial, cfg: cfg}
}

// Resume rebuilds a selector mid-session from the persisted difficulty
// and the most recent combined scores (newest last).
func Resume(cfg config.Adaptive, level model.Difficulty, recent []float64) Selector {
	s := New(cfg, level)
	if len(recent) > cfg.Window {
		recent = recent[len(recent)-cfg.Window:]
	}
	s.Recent = append(s.Recent, recent...)
	return s
}

// Observe records a finalized combined score and returns the updated
// selector and the resulting trend. The level moves only once a full
// window of scores is available: up one step when the rolling average
// exceeds the advance threshold, down one step when it falls below the
// regress threshold, otherwise it holds.
func (s Selector) Observe(score float64) (Selector, model.Trend) {
	s.Recent = append(append([]float64(nil), s.Recent...), score)
	if len(s.Recent) > s.cfg.Window {
		s.Recent = s.Recent[len(s.Recent)-s.cfg.Window:]
	}
	if len(s.Recent) < s.cfg.Window {
		return s, model.TrendHolding
	}

	avg := s.RollingAverage()
	switch {
	case avg > s.cfg.Advance:
		s.Level = s.Level.Harder()
		return s, model.TrendAdvancing
	case avg < s.cfg.Regress:
		s.Level = s.Level.Easier()
		return s, model.TrendRegressing
	default:
		return s, model.TrendHolding
	}
}

// RollingAverage returns the mean of the retained scores, or 0 when none
// have been observed.
func (s Selector) RollingAverage() float64 {
	if len(s.Recent) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Recent {
		sum += v
	}
	return sum / float64(len(s.Recent))
}
