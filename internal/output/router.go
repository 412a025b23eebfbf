package output

import (
	"fmt"
	"log/slog"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// levelDispatch is one unit of head work produced by a router: a [B, S, H]
// encoding plus the measurement subsets it predicts.
type levelDispatch struct {
	encoded        *tensor.Tensor[float32]
	classification map[string]bool
	regression     map[string]bool
}

// router maps an encoder output onto head dispatches. The strategy is fixed
// at model-build time by the processing mode; the route call itself is pure.
//
// Both strategies also return the whole-event encoding [B, S, H] consumed,
// unshifted, by the time-to-event head.
type router interface {
	route(encoded *tensor.Tensor[float32]) ([]levelDispatch, *tensor.Tensor[float32], error)
}

// conditionallyIndependentRouter predicts all event contents jointly from
// the preceding whole-event encoding: the encoder output is shifted right by
// one position, with a zero vector standing in for "no history" at position
// zero.
type conditionallyIndependentRouter struct {
	classification map[string]bool
	regression     map[string]bool
}

func (r *conditionallyIndependentRouter) route(encoded *tensor.Tensor[float32]) ([]levelDispatch, *tensor.Tensor[float32], error) {
	shape := encoded.Shape()
	if len(shape) != 3 {
		return nil, nil, fmt.Errorf(
			"conditionally-independent encodings must have shape [batch, seq, hidden], got %v", shape)
	}
	B, S, H := shape[0], shape[1], shape[2]

	// With a single event there is no history to shift in.
	shifted := tensor.Zeros[float32](tensor.Shape{B, 1, H})
	if S > 1 {
		shifted = tensor.Cat([]*tensor.Tensor[float32]{
			shifted,
			tensor.Narrow(encoded, 1, 0, S-1),
		}, 1)
	}

	dispatch := levelDispatch{
		encoded:        shifted,
		classification: r.classification,
		regression:     r.regression,
	}
	return []levelDispatch{dispatch}, encoded, nil
}

// nestedAttentionRouter walks an explicit dependency graph: the encoder
// output is [B, S, L, H] with the final L index holding the whole-event
// summary, and dependency-graph level i (i >= 1) predicted, unshifted, from
// encoding index i-1. Level 0 is time-only and covered by the time-to-event
// head.
type nestedAttentionRouter struct {
	classification map[string]bool
	regression     map[string]bool

	// levels[i] holds the measurement subsets of dependency-graph level i,
	// already intersected with the global generative-mode sets. Nil when no
	// partition was configured, in which case every level carries every
	// measurement.
	levels []levelSubsets
}

type levelSubsets struct {
	classification map[string]bool
	regression     map[string]bool
}

func newNestedAttentionRouter(cfg *config.StructuredTransformerConfig, reg *registry, logger *slog.Logger) *nestedAttentionRouter {
	r := &nestedAttentionRouter{
		classification: reg.classificationSet(),
		regression:     reg.regressionSet(),
	}
	if cfg.MeasurementsPerDepGraphLevel == nil {
		logger.Warn("no dependency-graph partition configured; every level will predict every measurement")
		return r
	}

	r.levels = make([]levelSubsets, len(cfg.MeasurementsPerDepGraphLevel))
	for i, groups := range cfg.MeasurementsPerDepGraphLevel {
		subset := levelSubsets{
			classification: make(map[string]bool),
			regression:     make(map[string]bool),
		}
		for _, g := range groups {
			kind := g.EffectiveKind()
			if kind != config.NumericalOnly && r.classification[g.Measurement] {
				subset.classification[g.Measurement] = true
			}
			if kind != config.CategoricalOnly && r.regression[g.Measurement] {
				subset.regression[g.Measurement] = true
			}
		}
		r.levels[i] = subset
	}
	return r
}

func (r *nestedAttentionRouter) route(encoded *tensor.Tensor[float32]) ([]levelDispatch, *tensor.Tensor[float32], error) {
	shape := encoded.Shape()
	if len(shape) != 4 {
		return nil, nil, fmt.Errorf(
			"nested-attention encodings must have shape [batch, seq, levels, hidden], got %v", shape)
	}
	L := shape[2]
	if r.levels != nil && len(r.levels) != L {
		return nil, nil, fmt.Errorf(
			"encoder produced %d dependency-graph levels but the partition declares %d", L, len(r.levels))
	}

	wholeEvent := tensor.Select(encoded, 2, L-1)

	dispatches := make([]levelDispatch, 0, L-1)
	for i := 1; i < L; i++ {
		d := levelDispatch{encoded: tensor.Select(encoded, 2, i-1)}
		if r.levels == nil {
			d.classification = r.classification
			d.regression = r.regression
		} else {
			d.classification = r.levels[i].classification
			d.regression = r.levels[i].regression
		}
		dispatches = append(dispatches, d)
	}
	return dispatches, wholeEvent, nil
}
