package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdermott/EventStreamML/internal/config"
)

func resolvedConfig(t *testing.T, initLR, endLR float64, warmup, total int) config.OptimizationConfig {
	t.Helper()
	cfg := config.OptimizationConfig{
		InitLR:           initLR,
		EndLR:            endLR,
		BatchSize:        1,
		MaxEpochs:        1,
		LRDecayPower:     1,
		LRNumWarmupSteps: &warmup,
		MaxTrainingSteps: &total,
	}
	return cfg
}

func TestScheduleWarmupRampsLinearly(t *testing.T) {
	s, err := NewSchedule(resolvedConfig(t, 1.0, 0, 4, 100))
	require.NoError(t, err)

	assert.InDelta(t, 0.25, s.LR(0), 1e-12)
	assert.InDelta(t, 0.50, s.LR(1), 1e-12)
	assert.InDelta(t, 1.00, s.LR(3), 1e-12)
}

func TestScheduleDecaysToEndLR(t *testing.T) {
	s, err := NewSchedule(resolvedConfig(t, 1.0, 0.1, 0, 10))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, s.LR(0), 1e-12)
	// Linear decay: halfway through, halfway down.
	assert.InDelta(t, 0.55, s.LR(5), 1e-12)
	assert.InDelta(t, 0.1, s.LR(10), 1e-12)
	assert.InDelta(t, 0.1, s.LR(1000), 1e-12)
}

func TestScheduleHonorsDecayPower(t *testing.T) {
	warmup, total := 0, 10
	cfg := resolvedConfig(t, 1.0, 0, warmup, total)
	cfg.LRDecayPower = 2

	s, err := NewSchedule(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, s.LR(5), 1e-12)
}

func TestScheduleRequiresResolvedConfig(t *testing.T) {
	_, err := NewSchedule(config.OptimizationConfig{InitLR: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolved")
}

func TestScheduleFromResolve(t *testing.T) {
	opt := config.DefaultOptimizationConfig()
	opt.MaxEpochs = 2
	opt.BatchSize = 10
	require.NoError(t, opt.Resolve(100))

	s, err := NewSchedule(opt)
	require.NoError(t, err)
	assert.Equal(t, 20, s.TotalSteps())
}
