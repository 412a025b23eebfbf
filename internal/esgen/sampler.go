// Package esgen draws concrete next events from generation-mode model
// outputs: a duration until the next event plus sampled contents for every
// generative measurement.
package esgen

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/output"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// NextEvent is one sampled continuation per stream in the batch.
type NextEvent struct {
	// TimeToNext holds sampled durations from the final event to the
	// next one, shape [B].
	TimeToNext *tensor.Tensor[float32]

	// SingleLabel maps single-label measurements to sampled class
	// indices, shape [B], local to the measurement's vocabulary.
	SingleLabel map[string]*tensor.Tensor[int64]

	// MultiLabel maps multi-label measurements to sampled label sets,
	// shape [B, V].
	MultiLabel map[string]*tensor.Tensor[bool]

	// RegressionValues maps regression measurements to sampled values
	// for every target, shape [B, V].
	RegressionValues map[string]*tensor.Tensor[float32]
}

// Sampler draws next events from the distributions of a forward pass.
type Sampler struct {
	cfg *config.StructuredTransformerConfig
	src rand.Source
}

func NewSampler(cfg *config.StructuredTransformerConfig, src rand.Source) *Sampler {
	return &Sampler{cfg: cfg, src: src}
}

// SampleNext draws one next event per stream from the final sequence
// position of a generation-mode output.
func (s *Sampler) SampleNext(out *output.Output) (*NextEvent, error) {
	if out.Labels != nil || out.Loss != nil {
		return nil, fmt.Errorf("sampling requires a generation-mode forward pass")
	}
	if out.Predictions.TimeToEvent == nil {
		return nil, fmt.Errorf("output carries no time-to-event distribution")
	}

	last := out.EventMask.Dim(1) - 1
	next := &NextEvent{
		SingleLabel:      make(map[string]*tensor.Tensor[int64]),
		MultiLabel:       make(map[string]*tensor.Tensor[bool]),
		RegressionValues: make(map[string]*tensor.Tensor[float32]),
	}

	// The duration distribution covers position S-1: the time from the
	// final observed event to the one being generated.
	next.TimeToNext = tensor.Select(out.Predictions.TimeToEvent.Sample(s.src), 1, last)

	for measurement, dist := range out.Predictions.Classification {
		switch d := dist.(type) {
		case *distribution.Categorical:
			next.SingleLabel[measurement] = tensor.Select(d.Sample(s.src), 1, last)
		case *distribution.Bernoulli:
			next.MultiLabel[measurement] = tensor.Select(d.Sample(s.src), 1, last)
		default:
			return nil, fmt.Errorf("measurement %q has an unsampleable distribution %T", measurement, dist)
		}
	}

	for measurement, dist := range out.Predictions.Regression {
		next.RegressionValues[measurement] = tensor.Select(dist.Sample(s.src), 1, last)
	}
	return next, nil
}
