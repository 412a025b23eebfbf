package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Bernoulli is a set of independent per-class Bernoulli distributions,
// parameterized by logits of shape [..., numClasses]. It models multi-label
// prediction: any subset of classes may be simultaneously active.
type Bernoulli struct {
	logits *tensor.Tensor[float32]
}

// NewBernoulli creates an independent-Bernoulli distribution from logits.
func NewBernoulli(logits *tensor.Tensor[float32]) *Bernoulli {
	if len(logits.Shape()) < 1 {
		panic("NewBernoulli: logits must have at least one dimension")
	}
	return &Bernoulli{logits: logits}
}

// Logits returns the raw logits.
func (b *Bernoulli) Logits() *tensor.Tensor[float32] {
	return b.logits
}

// NumClasses returns the number of independent classes.
func (b *Bernoulli) NumClasses() int {
	return b.logits.Dim(-1)
}

// Probs returns the per-class activation probabilities.
func (b *Bernoulli) Probs() *tensor.Tensor[float32] {
	return tensor.Sigmoid(b.logits)
}

// LogProb returns the per-class log-likelihood of binary targets (same shape
// as the logits, values in {0, 1}). This is the negation of the per-label
// binary cross-entropy with logits:
//
//	log p = targets*logsigmoid(x) + (1-targets)*logsigmoid(-x)
func (b *Bernoulli) LogProb(targets *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	if !targets.Shape().Equal(b.logits.Shape()) {
		panic(fmt.Sprintf("Bernoulli.LogProb: targets shape %v does not match logits shape %v",
			targets.Shape(), b.logits.Shape()))
	}
	// logsigmoid(x) = -softplus(-x)
	logSigPos := tensor.Neg(tensor.Softplus(tensor.Neg(b.logits)))
	logSigNeg := tensor.Neg(tensor.Softplus(b.logits))
	onesMinus := tensor.SubScalar(tensor.Neg(targets), -1) // 1 - targets
	return tensor.Add(tensor.Mul(targets, logSigPos), tensor.Mul(onesMinus, logSigNeg))
}

// Sample draws an independent boolean per class.
func (b *Bernoulli) Sample(src rand.Source) *tensor.Tensor[bool] {
	probs := b.Probs()
	out := tensor.New[bool](probs.Shape())
	for i, p := range probs.Data() {
		bern := distuv.Bernoulli{P: float64(p), Src: src}
		out.Data()[i] = bern.Rand() > 0.5
	}
	return out
}
