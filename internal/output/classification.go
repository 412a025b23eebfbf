package output

import (
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/nn"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// classificationHeads scores every classification measurement from one
// shared projection of the hidden state onto the full vocabulary; each
// measurement reads its own vocabulary slice. The loss rule per measurement
// is fixed at construction from its generative mode.
type classificationHeads struct {
	proj *nn.Linear
	reg  *registry
}

func newClassificationHeads(reg *registry, rng *rand.Rand) *classificationHeads {
	return &classificationHeads{
		proj: nn.NewLinear(reg.cfg.HiddenSize, reg.cfg.TotalVocabSize(), rng),
		reg:  reg,
	}
}

type classificationResult struct {
	losses map[string]float32
	dists  map[string]distribution.Discrete
	labels map[string]ClassificationLabels
}

// outputs scores the valid classification measurements from encoded
// ([B, S, H], already routed and shifted as the processing mode requires).
// Scores are produced for every event, masked or not; masking only affects
// the losses.
func (h *classificationHeads) outputs(
	batch *data.Batch,
	encoded *tensor.Tensor[float32],
	valid map[string]bool,
	eventTypeMasks map[string]*tensor.Tensor[bool],
	forGeneration bool,
) classificationResult {
	res := classificationResult{
		dists: make(map[string]distribution.Discrete),
	}
	if !forGeneration {
		res.losses = make(map[string]float32)
		res.labels = make(map[string]ClassificationLabels)
	}
	if len(valid) == 0 {
		return res
	}

	allScores := h.proj.Forward(encoded)

	for measurement, mode := range h.reg.classificationModes {
		if !valid[measurement] {
			continue
		}

		eventMask := batch.EventMask
		if eventTypeMasks != nil {
			if etMask, ok := eventTypeMasks[measurement]; ok {
				eventMask = tensor.And(etMask, eventMask)
			}
		}

		start, end := h.reg.vocabRange(measurement)
		scores := tensor.Narrow(allScores, 2, start, end-start)
		slotMask := tensor.EqualScalar(batch.DynamicMeasurementIndices,
			h.reg.measurementIndex(measurement))

		switch mode {
		case config.SingleLabelClassification:
			dist := distribution.NewCategorical(scores)
			res.dists[measurement] = dist
			if forGeneration {
				continue
			}

			// At most one slot per event carries this measurement, so a
			// masked sum extracts its index directly. Events without the
			// measurement get label zero and are masked out of the loss.
			eventsWithLabel := tensor.Any(slotMask, -1, false)
			summed := tensor.SumDim(tensor.Mul(batch.DynamicIndices, tensor.ToInt64(slotMask)), -1, false)
			labels := tensor.Mul(
				tensor.SubScalar(summed, int64(start)),
				tensor.ToInt64(eventsWithLabel))

			lossPerEvent := tensor.Neg(dist.LogProb(labels))
			res.losses[measurement] = nn.WeightedLoss(lossPerEvent, tensor.And(eventMask, eventsWithLabel))
			res.labels[measurement] = ClassificationLabels{Indices: labels}

		case config.MultiLabelClassification:
			dist := distribution.NewBernoulli(scores)
			res.dists[measurement] = dist
			if forGeneration {
				continue
			}

			// Multi-hot labels via scatter with a +1 sentinel: slots not
			// carrying this measurement scatter into column 0, which is
			// dropped afterwards.
			width := end - start
			localOrZero := tensor.Where(slotMask,
				tensor.AddScalar(tensor.SubScalar(batch.DynamicIndices, int64(start)), 1),
				tensor.Zeros[int64](batch.DynamicIndices.Shape()))
			B, S, _ := batch.Dims()
			padded := tensor.ScatterValue(
				tensor.Zeros[float32](tensor.Shape{B, S, 1 + width}), 2, localOrZero, 1)
			labels := tensor.Narrow(padded, 2, 1, width)

			lossPerLabel := tensor.Neg(dist.LogProb(labels))
			lossPerEvent := tensor.MeanDim(lossPerLabel, -1, false)
			res.losses[measurement] = nn.WeightedLoss(lossPerEvent, eventMask)
			res.labels[measurement] = ClassificationLabels{MultiHot: labels}
		}
	}
	return res
}
