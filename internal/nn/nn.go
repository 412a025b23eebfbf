// Package nn implements the neural-network building blocks used by the
// event-stream output heads: affine projections, parameter bookkeeping, and
// the mask-safe reduction helpers that every loss in this model is averaged
// with.
//
// Design inspired by PyTorch's nn.Module but adapted for Go.
package nn

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module interface {
	// Parameters returns all trainable parameters of this module,
	// including nested module parameters.
	Parameters() []*Parameter
}

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are built once at model construction and are read-only during
// forward passes, so a model is safe for concurrent forward calls.
type Parameter struct {
	name   string
	tensor *tensor.Tensor[float32]
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, t *tensor.Tensor[float32]) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor[float32] {
	return p.tensor
}

// Xavier returns a tensor initialized from the Glorot uniform distribution
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// A caller-supplied rng keeps model construction reproducible under a fixed
// seed.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor[float32] {
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return tensor.Uniform(shape, -bound, bound, rng)
}
