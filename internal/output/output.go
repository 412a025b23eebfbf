// Package output implements the structured generative output layer: the
// per-measurement classification and indexed-regression heads, the
// time-to-event head, event-type applicability filtering, and the
// dependency-graph router that dispatches encoder representations to the
// right heads under either processing mode.
//
// The layer is built once from a validated configuration and is read-only
// afterwards, so one instance may serve concurrent forward passes.
package output

import (
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// ClassificationLabels holds the supervision targets extracted from a batch
// for one classification measurement. Exactly one field is set, matching the
// measurement's generative mode.
type ClassificationLabels struct {
	// Indices holds per-event class indices, shape [B, S]. Events without
	// an observation for the measurement hold zero. Set for single-label
	// measurements.
	Indices *tensor.Tensor[int64]

	// MultiHot holds per-event binary label vectors, shape [B, S, V].
	// Set for multi-label measurements.
	MultiHot *tensor.Tensor[float32]
}

// Predictions bundles the per-measurement distributions produced by one
// forward pass. Distributions are populated in both training and generation
// mode.
type Predictions struct {
	// Classification maps measurement name to its predicted distribution
	// over the measurement's local vocabulary (categorical for
	// single-label, per-class Bernoulli for multi-label).
	Classification map[string]distribution.Discrete

	// Regression maps measurement name to the predicted Gaussian over
	// regression values. In scoring mode parameters are gathered at the
	// observed target indices, shape [B, S, K]; in generation mode they
	// cover every target, shape [B, S, V].
	Regression map[string]*distribution.Normal

	// RegressionIndices maps measurement name to the observed
	// regression-target indices the distribution parameters were gathered
	// at, shape [B, S, K]. Nil in generation mode.
	RegressionIndices map[string]*tensor.Tensor[int64]

	// TimeToEvent is the predicted duration distribution over [B, S].
	// Position s predicts the time from event s to event s+1, including
	// the unobserved duration after the final event.
	TimeToEvent distribution.Duration
}

// Losses holds the per-measurement scalar losses of one forward pass. All
// fields are nil in generation mode.
type Losses struct {
	Classification map[string]float32
	Regression     map[string]float32

	// TimeToEvent is the negative log-likelihood of the observed
	// durations.
	TimeToEvent *float32
}

// Labels holds the supervision targets extracted from the batch. Nil in
// generation mode.
type Labels struct {
	Classification    map[string]ClassificationLabels
	Regression        map[string]*tensor.Tensor[float32]
	RegressionIndices map[string]*tensor.Tensor[int64]

	// TimeToEvent holds the durations between consecutive events, shape
	// [B, S-1]. The duration distribution in Predictions spans S positions;
	// its final position predicts the still-unobserved time after the last
	// event and has no label here.
	TimeToEvent *tensor.Tensor[float32]
}

// Output is the result of one forward pass through the generative output
// layer.
type Output struct {
	// Loss is the total training loss: the sum of all classification and
	// regression losses plus the time-to-event negative log-likelihood.
	// Nil in generation mode.
	Loss *float32

	Losses      Losses
	Predictions Predictions
	Labels      *Labels

	// EventTypeMasks maps measurement name to a [B, S] mask of events
	// whose type makes the measurement applicable. Nil when event-type
	// filtering is not configured.
	EventTypeMasks map[string]*tensor.Tensor[bool]

	EventMask         *tensor.Tensor[bool]
	DynamicValuesMask *tensor.Tensor[bool]
}
