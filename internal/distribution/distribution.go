// Package distribution implements the predicted-output distribution families
// of the generative event-stream model: categorical and per-class Bernoulli
// distributions over vocabulary slices, Gaussian regression targets, and the
// exponential / log-normal-mixture families used for inter-event durations.
//
// Log-likelihoods are computed in bulk over tensors; sampling delegates the
// scalar draws to gonum's distuv so the well-tested inverse-CDF logic is not
// re-derived here.
package distribution

import (
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Discrete is a distribution over a contiguous vocabulary slice. Samples and
// probabilities are aligned with the slice's local indices (0-based within
// the measurement's vocabulary range).
type Discrete interface {
	// Probs returns per-class probabilities with shape [..., numClasses].
	Probs() *tensor.Tensor[float32]

	// NumClasses returns the size of the vocabulary slice.
	NumClasses() int
}

// Duration is a continuous distribution over positive inter-event times with
// batch shape [batch, seq].
type Duration interface {
	// LogProb returns the per-position log-likelihood of the observed
	// durations x, which must match the distribution's batch shape.
	LogProb(x *tensor.Tensor[float32]) *tensor.Tensor[float32]

	// Sample draws one duration per batch position.
	Sample(src rand.Source) *tensor.Tensor[float32]

	// Mean returns the per-position expected duration.
	Mean() *tensor.Tensor[float32]
}
