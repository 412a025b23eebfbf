package nn

import (
	"fmt"
	"math"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// SafeWeightedAvg averages X against weights along the trailing dimension.
//
// Positions whose total weight is zero average to exactly 0 rather than NaN;
// a sequence with no valid events must contribute nothing to a loss, not
// poison it. Returns the per-position averages and the weight totals so
// callers can distinguish "average is 0" from "nothing was observed".
//
// X and weights must share a shape of [..., N]; both results have shape [...].
func SafeWeightedAvg(x, weights *tensor.Tensor[float32]) (avg, denom *tensor.Tensor[float32]) {
	if !x.Shape().Equal(weights.Shape()) {
		panic(fmt.Sprintf("SafeWeightedAvg: shape mismatch: %v vs %v", x.Shape(), weights.Shape()))
	}
	numer := tensor.SumDim(tensor.Mul(x, weights), -1, false)
	denom = tensor.SumDim(weights, -1, false)
	avg = tensor.Where(tensor.GreaterScalar(denom, 0), tensor.Div(numer, denom), tensor.ZerosLike(numer))
	return avg, denom
}

// WeightedLoss reduces a per-event loss tensor [batch, seq] against a boolean
// event mask: events are averaged per sequence with SafeWeightedAvg, then the
// per-sequence values are macro-averaged over the batch. Sequences with no
// unmasked events contribute 0.
func WeightedLoss(lossPerEvent *tensor.Tensor[float32], mask *tensor.Tensor[bool]) float32 {
	perSequence, _ := SafeWeightedAvg(lossPerEvent, tensor.ToFloat32(mask))
	n := perSequence.NumElements()
	var sum float32
	for _, v := range perSequence.Data() {
		sum += v
	}
	return sum / float32(n)
}

// SafeMaskedMax computes the per-feature maximum of X [batch, seq, hidden]
// over unmasked sequence positions, returning [batch, hidden]. Rows with no
// unmasked position yield 0.
func SafeMaskedMax(x *tensor.Tensor[float32], mask *tensor.Tensor[bool]) *tensor.Tensor[float32] {
	shape := x.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("SafeMaskedMax: expected [batch, seq, hidden], got %v", shape))
	}
	maskCol := tensor.Unsqueeze(mask, -1) // [B, S, 1]
	negInf := tensor.Full(tensor.Shape{1}, float32(math.Inf(-1)))
	masked := tensor.Where(maskCol, x, negInf)
	maxed := tensor.MaxDim(masked, 1, false) // [B, H]

	anyValid := tensor.Any(mask, -1, false)          // [B]
	validCol := tensor.Unsqueeze(anyValid, -1)       // [B, 1]
	return tensor.Where(validCol, maxed, tensor.ZerosLike(maxed))
}

// SafeMaskedMean computes the per-feature mean of X [batch, seq, hidden] over
// unmasked sequence positions, returning [batch, hidden]. Rows with no
// unmasked position yield 0.
func SafeMaskedMean(x *tensor.Tensor[float32], mask *tensor.Tensor[bool]) *tensor.Tensor[float32] {
	shape := x.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("SafeMaskedMean: expected [batch, seq, hidden], got %v", shape))
	}
	maskF := tensor.ToFloat32(tensor.Unsqueeze(mask, -1)) // [B, S, 1]
	numer := tensor.SumDim(tensor.Mul(x, maskF), 1, false)
	denom := tensor.SumDim(maskF, 1, false) // [B, 1]
	return tensor.Where(tensor.GreaterScalar(denom, 0), tensor.Div(numer, denom), tensor.ZerosLike(numer))
}
