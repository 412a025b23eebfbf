package output

import (
	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// eventTypeMasks computes, for each measurement with a configured event-type
// restriction, a [B, S] mask of events whose type makes the measurement
// applicable. Returns nil when filtering is not configured; measurements
// absent from the result are applicable everywhere.
func (r *registry) eventTypeMasks(batch *data.Batch) map[string]*tensor.Tensor[bool] {
	if r.cfg.EventTypesPerMeasurement == nil {
		return nil
	}

	typeSlot := tensor.EqualScalar(batch.DynamicMeasurementIndices,
		r.measurementIndex(config.EventTypeMeasurement))

	// Event-type ids per slot, with -1 wherever the slot holds some other
	// measurement so it can never match a valid id.
	offset := int64(r.cfg.VocabOffsetsByMeasurement[config.EventTypeMeasurement])
	typeIDs := tensor.Where(typeSlot,
		tensor.SubScalar(batch.DynamicIndices, offset),
		tensor.Full[int64](batch.DynamicIndices.Shape(), -1))

	masks := make(map[string]*tensor.Tensor[bool], len(r.cfg.EventTypesPerMeasurement))
	for measurement, types := range r.cfg.EventTypesPerMeasurement {
		var match *tensor.Tensor[bool]
		for _, et := range types {
			id := int64(r.cfg.EventTypesIdxmap[et])
			hit := tensor.EqualScalar(typeIDs, id)
			if match == nil {
				match = hit
			} else {
				match = tensor.Or(match, hit)
			}
		}
		if match == nil {
			match = tensor.Zeros[bool](batch.DynamicIndices.Shape())
		}
		masks[measurement] = tensor.Any(match, -1, false)
	}
	return masks
}
