package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Linear implements a fully connected (dense) layer: y = x @ W.T + b.
//
// Unlike a plain 2D layer, Forward accepts inputs with any number of leading
// batch dimensions ([..., in_features]) and applies the projection to the
// trailing feature dimension, which is how the output heads consume
// [batch, seq, hidden] and [batch, seq, level, hidden] encodings.
//
// Weights are initialized with Xavier/Glorot uniform; biases start at zero,
// so a zero input always yields zero logits.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a new Linear layer.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng))
	bias := NewParameter("bias", tensor.Zeros[float32](tensor.Shape{outFeatures}))
	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
}

// Forward computes y = x @ W.T + b over the trailing feature dimension.
//
// Input shape: [..., in_features]. Output shape: [..., out_features].
func (l *Linear) Forward(input *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	shape := input.Shape()
	if len(shape) < 1 || shape[len(shape)-1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with trailing dimension %d, got shape %v",
			l.inFeatures, shape))
	}

	lead := 1
	for _, d := range shape[:len(shape)-1] {
		lead *= d
	}
	flat := input.Reshape(lead, l.inFeatures)

	// [lead, in] @ [in, out] = [lead, out]
	wT := transpose2D(l.weight.Tensor())
	out := tensor.MatMul(flat, wT)
	out = tensor.Add(out, l.bias.Tensor().Reshape(1, l.outFeatures))

	outShape := append(shape.Clone()[:len(shape)-1], l.outFeatures)
	return out.Reshape(outShape...)
}

func transpose2D(t *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	shape := t.Shape()
	rows, cols := shape[0], shape[1]
	out := tensor.Zeros[float32](tensor.Shape{cols, rows})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(t.At(r, c), c, r)
		}
	}
	return out
}

// Parameters returns the trainable parameters of this layer.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
