package output

import (
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/nn"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// eluPlusOne maps unconstrained projection outputs to strictly positive
// scale parameters: x+1 for x > 0, exp(x) otherwise, plus a small epsilon.
// A zero input yields (almost exactly) one.
func eluPlusOne(x *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	positive := tensor.GreaterScalar(x, 0)
	return tensor.AddScalar(
		tensor.Where(positive, tensor.AddScalar(x, 1), tensor.Exp(x)),
		1e-6)
}

// indexedGaussianHead predicts a Gaussian per regression target within one
// measurement: a single projection emits a mean and a scale for every
// target, and scoring gathers the parameters at the observed target
// indices. One head therefore serves arbitrarily many targets sharing the
// measurement.
type indexedGaussianHead struct {
	proj       *nn.Linear
	numTargets int
}

func newIndexedGaussianHead(hiddenSize, numTargets int, rng *rand.Rand) *indexedGaussianHead {
	return &indexedGaussianHead{
		proj:       nn.NewLinear(hiddenSize, 2*numTargets, rng),
		numTargets: numTargets,
	}
}

// dist predicts from encoded [B, S, H]. With indices [B, S, K] the returned
// Gaussian covers the indexed targets, shape [B, S, K]; with nil indices it
// covers all targets, shape [B, S, numTargets].
func (h *indexedGaussianHead) dist(encoded *tensor.Tensor[float32], indices *tensor.Tensor[int64]) *distribution.Normal {
	params := h.proj.Forward(encoded)
	mean := tensor.Narrow(params, 2, 0, h.numTargets)
	scale := eluPlusOne(tensor.Narrow(params, 2, h.numTargets, h.numTargets))
	if indices == nil {
		return distribution.NewNormal(mean, scale)
	}
	return distribution.NewNormal(
		tensor.Gather(mean, 2, indices),
		tensor.Gather(scale, 2, indices))
}

type regressionHeads struct {
	reg   *registry
	heads map[string]*indexedGaussianHead
}

func newRegressionHeads(reg *registry, rng *rand.Rand) *regressionHeads {
	heads := make(map[string]*indexedGaussianHead, len(reg.regressionMeasurements))
	for measurement := range reg.regressionMeasurements {
		heads[measurement] = newIndexedGaussianHead(
			reg.cfg.HiddenSize, reg.cfg.VocabSizesByMeasurement[measurement], rng)
	}
	return &regressionHeads{reg: reg, heads: heads}
}

type regressionResult struct {
	losses  map[string]float32
	dists   map[string]*distribution.Normal
	labels  map[string]*tensor.Tensor[float32]
	indices map[string]*tensor.Tensor[int64]
}

// outputs predicts regression values for the valid measurements from
// encoded [B, S, H]. In generation mode no target indices are supplied: the
// distributions cover every target and no losses or labels are produced.
func (h *regressionHeads) outputs(
	batch *data.Batch,
	encoded *tensor.Tensor[float32],
	valid map[string]bool,
	eventTypeMasks map[string]*tensor.Tensor[bool],
	forGeneration bool,
) regressionResult {
	res := regressionResult{
		dists: make(map[string]*distribution.Normal),
	}
	if !forGeneration {
		res.losses = make(map[string]float32)
		res.labels = make(map[string]*tensor.Tensor[float32])
		res.indices = make(map[string]*tensor.Tensor[int64])
	}
	if len(valid) == 0 {
		return res
	}

	for measurement, head := range h.heads {
		if !valid[measurement] {
			continue
		}

		eventMask := batch.EventMask
		if eventTypeMasks != nil {
			if etMask, ok := eventTypeMasks[measurement]; ok {
				eventMask = tensor.And(etMask, eventMask)
			}
		}

		start, _ := h.reg.vocabRange(measurement)

		// Only slots that both carry this measurement and hold an
		// observed numeric value contribute.
		slotMask := tensor.And(
			tensor.EqualScalar(batch.DynamicMeasurementIndices, h.reg.measurementIndex(measurement)),
			batch.DynamicValuesMask)

		indices := tensor.Where(slotMask,
			tensor.SubScalar(batch.DynamicIndices, int64(start)),
			tensor.Zeros[int64](batch.DynamicIndices.Shape()))

		if forGeneration {
			res.dists[measurement] = head.dist(encoded, nil)
			continue
		}

		dist := head.dist(encoded, indices)
		values := tensor.Where(slotMask,
			batch.DynamicValues,
			tensor.Zeros[float32](batch.DynamicValues.Shape()))

		lossPerSlot := tensor.Neg(dist.LogProb(values))
		lossPerEvent, _ := nn.SafeWeightedAvg(lossPerSlot, tensor.ToFloat32(slotMask))
		eventsWithLabel := tensor.And(eventMask, tensor.Any(slotMask, -1, false))

		res.losses[measurement] = nn.WeightedLoss(lossPerEvent, eventsWithLabel)
		res.dists[measurement] = dist
		res.labels[measurement] = values
		res.indices[measurement] = indices
	}
	return res
}
