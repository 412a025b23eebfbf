// Package optim derives per-step learning rates from a resolved
// optimization configuration: linear warmup from zero to the initial rate,
// then polynomial decay to the final rate over the remaining steps.
package optim

import (
	"fmt"
	"math"

	"github.com/mmcdermott/EventStreamML/internal/config"
)

// Schedule computes the learning rate for each training step.
type Schedule struct {
	initLR      float64
	endLR       float64
	warmupSteps int
	totalSteps  int
	power       float64
}

// NewSchedule builds a schedule from an optimization config whose step
// counts have been resolved against the dataset size.
func NewSchedule(cfg config.OptimizationConfig) (*Schedule, error) {
	if cfg.MaxTrainingSteps == nil || cfg.LRNumWarmupSteps == nil {
		return nil, fmt.Errorf("optimization config must be resolved before building a schedule")
	}
	total := *cfg.MaxTrainingSteps
	warmup := *cfg.LRNumWarmupSteps
	if total <= 0 {
		return nil, fmt.Errorf("max_training_steps must be > 0, got %d", total)
	}
	if warmup < 0 || warmup > total {
		return nil, fmt.Errorf("warmup steps must lie in [0, %d], got %d", total, warmup)
	}
	if cfg.InitLR <= 0 {
		return nil, fmt.Errorf("init_lr must be > 0, got %v", cfg.InitLR)
	}
	power := cfg.LRDecayPower
	if power == 0 {
		power = 1
	}
	return &Schedule{
		initLR:      cfg.InitLR,
		endLR:       cfg.EndLR,
		warmupSteps: warmup,
		totalSteps:  total,
		power:       power,
	}, nil
}

// LR returns the learning rate for a zero-based step index. Steps beyond
// the schedule's end hold the final rate.
func (s *Schedule) LR(step int) float64 {
	if step < s.warmupSteps {
		return s.initLR * float64(step+1) / float64(s.warmupSteps)
	}
	if step >= s.totalSteps {
		return s.endLR
	}
	remaining := 1 - float64(step-s.warmupSteps)/float64(s.totalSteps-s.warmupSteps)
	return s.endLR + (s.initLR-s.endLR)*math.Pow(remaining, s.power)
}

// TotalSteps returns the number of steps the schedule spans.
func (s *Schedule) TotalSteps() int {
	return s.totalSteps
}
