// Package data defines the batch representation consumed by structured
// event-stream models: padded ragged tensors of per-event measurement
// observations plus event timestamps and masks.
package data

import (
	"fmt"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Batch is one padded minibatch of event streams.
//
// B is the batch size, S the padded sequence length, and K the padded
// per-event observation count. Position [b, s, k] is one observation slot:
// a global vocabulary index, the id of the measurement it belongs to, and
// an optional numeric value. Index 0 in both index streams is padding.
type Batch struct {
	// DynamicIndices holds global vocabulary indices, shape [B, S, K].
	DynamicIndices *tensor.Tensor[int64]

	// DynamicMeasurementIndices holds measurement ids per slot, shape
	// [B, S, K]. Ids follow the configured measurement index map.
	DynamicMeasurementIndices *tensor.Tensor[int64]

	// DynamicValues holds numeric values per slot, shape [B, S, K].
	// Only positions where DynamicValuesMask is true are meaningful.
	DynamicValues *tensor.Tensor[float32]

	// DynamicValuesMask marks slots carrying an observed numeric value,
	// shape [B, S, K].
	DynamicValuesMask *tensor.Tensor[bool]

	// EventMask marks real (non-padding) events, shape [B, S].
	EventMask *tensor.Tensor[bool]

	// Time holds event timestamps in minutes since sequence start, shape
	// [B, S].
	Time *tensor.Tensor[float32]

	// StreamLabels carries optional whole-stream supervision targets,
	// keyed by task name, each of shape [B].
	StreamLabels map[string]*tensor.Tensor[int64]
}

// Dims returns (batch size, sequence length, observations per event).
func (b *Batch) Dims() (int, int, int) {
	shape := b.DynamicIndices.Shape()
	return shape[0], shape[1], shape[2]
}

// Validate checks that all components are present with consistent shapes.
func (b *Batch) Validate() error {
	if b.DynamicIndices == nil {
		return fmt.Errorf("batch is missing dynamic_indices")
	}
	if len(b.DynamicIndices.Shape()) != 3 {
		return fmt.Errorf("dynamic_indices must be rank 3, got shape %v", b.DynamicIndices.Shape())
	}
	B, S, K := b.Dims()

	check3 := func(name string, shape tensor.Shape) error {
		if len(shape) != 3 || shape[0] != B || shape[1] != S || shape[2] != K {
			return fmt.Errorf("%s must have shape [%d %d %d], got %v", name, B, S, K, shape)
		}
		return nil
	}
	check2 := func(name string, shape tensor.Shape) error {
		if len(shape) != 2 || shape[0] != B || shape[1] != S {
			return fmt.Errorf("%s must have shape [%d %d], got %v", name, B, S, shape)
		}
		return nil
	}

	if b.DynamicMeasurementIndices == nil {
		return fmt.Errorf("batch is missing dynamic_measurement_indices")
	}
	if err := check3("dynamic_measurement_indices", b.DynamicMeasurementIndices.Shape()); err != nil {
		return err
	}
	if b.DynamicValues == nil {
		return fmt.Errorf("batch is missing dynamic_values")
	}
	if err := check3("dynamic_values", b.DynamicValues.Shape()); err != nil {
		return err
	}
	if b.DynamicValuesMask == nil {
		return fmt.Errorf("batch is missing dynamic_values_mask")
	}
	if err := check3("dynamic_values_mask", b.DynamicValuesMask.Shape()); err != nil {
		return err
	}
	if b.EventMask == nil {
		return fmt.Errorf("batch is missing event_mask")
	}
	if err := check2("event_mask", b.EventMask.Shape()); err != nil {
		return err
	}
	if b.Time == nil {
		return fmt.Errorf("batch is missing time")
	}
	if err := check2("time", b.Time.Shape()); err != nil {
		return err
	}
	for task, labels := range b.StreamLabels {
		shape := labels.Shape()
		if len(shape) != 1 || shape[0] != B {
			return fmt.Errorf("stream labels for task %q must have shape [%d], got %v", task, B, shape)
		}
	}
	return nil
}
