package config

import (
	"fmt"
	"math"
)

// OptimizationConfig holds training hyperparameters. Warmup may be given as
// a fraction of total steps or as an absolute step count; Resolve fills in
// whichever is missing once the dataset size is known.
type OptimizationConfig struct {
	InitLR       float64 `yaml:"init_lr"`
	EndLR        float64 `yaml:"end_lr"`
	MaxEpochs    int     `yaml:"max_epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LRDecayPower float64 `yaml:"lr_decay_power"`
	WeightDecay  float64 `yaml:"weight_decay"`

	LRFracWarmupSteps *float64 `yaml:"lr_frac_warmup_steps,omitempty"`
	LRNumWarmupSteps  *int     `yaml:"lr_num_warmup_steps,omitempty"`
	MaxTrainingSteps  *int     `yaml:"max_training_steps,omitempty"`
}

// DefaultOptimizationConfig mirrors the defaults used for from-scratch
// pretraining runs.
func DefaultOptimizationConfig() OptimizationConfig {
	frac := 0.01
	return OptimizationConfig{
		InitLR:            1e-2,
		EndLR:             1e-7,
		MaxEpochs:         100,
		BatchSize:         32,
		LRDecayPower:      1.0,
		WeightDecay:       0.01,
		LRFracWarmupSteps: &frac,
	}
}

// Resolve fixes the total and warmup step counts for a dataset of n
// examples. When both fractional and absolute warmup are set they must
// agree (up to rounding of the fraction).
func (o *OptimizationConfig) Resolve(n int) error {
	if n <= 0 {
		return fmt.Errorf("dataset size must be > 0, got %d", n)
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0, got %d", o.BatchSize)
	}
	if o.MaxEpochs <= 0 && o.MaxTrainingSteps == nil {
		return fmt.Errorf("either max_epochs or max_training_steps must be set")
	}

	if o.MaxTrainingSteps == nil {
		stepsPerEpoch := (n + o.BatchSize - 1) / o.BatchSize
		total := stepsPerEpoch * o.MaxEpochs
		o.MaxTrainingSteps = &total
	}

	if o.LRFracWarmupSteps != nil {
		fromFrac := int(math.Round(*o.LRFracWarmupSteps * float64(*o.MaxTrainingSteps)))
		if o.LRNumWarmupSteps == nil {
			o.LRNumWarmupSteps = &fromFrac
		} else if *o.LRNumWarmupSteps != fromFrac {
			return fmt.Errorf("lr_num_warmup_steps (%d) disagrees with lr_frac_warmup_steps (%v of %d steps = %d)",
				*o.LRNumWarmupSteps, *o.LRFracWarmupSteps, *o.MaxTrainingSteps, fromFrac)
		}
	}
	if o.LRNumWarmupSteps == nil {
		zero := 0
		o.LRNumWarmupSteps = &zero
	}
	return nil
}
