package output

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/nn"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// tteHead predicts the duration from each event to its successor. Given the
// whole-event encoding [B, S, H] it returns a distribution over [B, S]
// durations; position S-1 predicts the unobserved time after the final
// event.
type tteHead interface {
	Forward(encoded *tensor.Tensor[float32]) distribution.Duration
}

type exponentialTTEHead struct {
	proj *nn.Linear
}

func (h *exponentialTTEHead) Forward(encoded *tensor.Tensor[float32]) distribution.Duration {
	rate := eluPlusOne(tensor.Squeeze(h.proj.Forward(encoded), -1))
	return distribution.NewExponential(rate)
}

type logNormalMixtureTTEHead struct {
	proj       *nn.Linear
	components int
	meanLog    float32
	stdLog     float32
}

func (h *logNormalMixtureTTEHead) Forward(encoded *tensor.Tensor[float32]) distribution.Duration {
	params := h.proj.Forward(encoded)
	locs := tensor.Narrow(params, 2, 0, h.components)
	logScales := tensor.Narrow(params, 2, h.components, h.components)
	logWeights := tensor.Narrow(params, 2, 2*h.components, h.components)
	return distribution.NewLogNormalMixture(locs, logScales, logWeights, h.meanLog, h.stdLog)
}

// newTTEHead builds the head variant selected by the resolved time-to-event
// configuration.
func newTTEHead(tte config.TTEConfig, hiddenSize int, rng *rand.Rand) tteHead {
	switch tte.Type {
	case config.TTELogNormalMixture:
		return &logNormalMixtureTTEHead{
			proj:       nn.NewLinear(hiddenSize, 3*tte.Components, rng),
			components: tte.Components,
			meanLog:    float32(tte.MeanLogInterEventTime),
			stdLog:     float32(tte.StdLogInterEventTime),
		}
	default:
		return &exponentialTTEHead{proj: nn.NewLinear(hiddenSize, 1, rng)}
	}
}

// tteOutputs computes the time-to-event distribution, the observed
// durations, and their average log-likelihood (per sequence over observed
// durations, then macro over the batch).
//
// A duration is observed only when both of its endpoint events are real. A
// synthetic duration is appended for the final position, masked out of the
// loss, so the returned labels align with the distribution's S positions.
// Non-finite intermediates and sequences with no observed durations are
// data bugs and abort with an error.
func tteOutputs(head tteHead, batch *data.Batch, wholeEvent *tensor.Tensor[float32]) (float32, distribution.Duration, *tensor.Tensor[float32], error) {
	dist := head.Forward(wholeEvent)

	B, S, _ := batch.Dims()
	if S < 2 {
		return 0, nil, nil, fmt.Errorf(
			"batch [%d x %d] has no observed durations: at least two events are needed to observe one", B, S)
	}
	obsMask := tensor.And(
		tensor.Narrow(batch.EventMask, 1, 1, S-1),
		tensor.Narrow(batch.EventMask, 1, 0, S-1))
	delta := tensor.Sub(
		tensor.Narrow(batch.Time, 1, 1, S-1),
		tensor.Narrow(batch.Time, 1, 0, S-1))
	tteTrue := tensor.Where(obsMask, delta, tensor.OnesLike(delta))

	trueExp := tensor.Cat([]*tensor.Tensor[float32]{
		tteTrue, tensor.Ones[float32](tensor.Shape{B, 1}),
	}, 1)
	maskExp := tensor.Cat([]*tensor.Tensor[bool]{
		obsMask, tensor.Zeros[bool](tensor.Shape{B, 1}),
	}, 1)

	if !tensor.AllFinite(trueExp) {
		return 0, nil, nil, fmt.Errorf(
			"non-finite observed durations in batch [%d x %d]: times %v", B, S, batch.Time)
	}
	ll := dist.LogProb(trueExp)
	if !tensor.AllFinite(ll) {
		return 0, nil, nil, fmt.Errorf(
			"non-finite time-to-event log-likelihood in batch [%d x %d]: durations %v", B, S, trueExp)
	}

	obsWeights := tensor.ToFloat32(maskExp)
	obsPerSeq := tensor.SumDim(obsWeights, -1, false)
	for b := 0; b < B; b++ {
		if obsPerSeq.At(b) == 0 {
			return 0, nil, nil, fmt.Errorf(
				"sequence %d of batch [%d x %d] has no observed durations: event mask %v",
				b, B, S, batch.EventMask)
		}
	}

	llPerSeq, _ := nn.SafeWeightedAvg(ll, obsWeights)
	overall := tensor.Sum(llPerSeq) / float32(B)
	return overall, dist, tteTrue, nil
}
