package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Exponential is a per-position exponential distribution over durations,
// parameterized by a strictly positive rate tensor of shape [batch, seq].
type Exponential struct {
	rate *tensor.Tensor[float32]
}

// NewExponential creates an exponential duration distribution.
func NewExponential(rate *tensor.Tensor[float32]) *Exponential {
	return &Exponential{rate: rate}
}

// Rate returns the per-position rates.
func (e *Exponential) Rate() *tensor.Tensor[float32] {
	return e.rate
}

// LogProb returns log p(x) = log(rate) - rate*x per position.
func (e *Exponential) LogProb(x *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	if !x.Shape().Equal(e.rate.Shape()) {
		panic(fmt.Sprintf("Exponential.LogProb: x shape %v does not match rate shape %v",
			x.Shape(), e.rate.Shape()))
	}
	return tensor.Sub(tensor.Log(e.rate), tensor.Mul(e.rate, x))
}

// Mean returns 1/rate per position.
func (e *Exponential) Mean() *tensor.Tensor[float32] {
	return tensor.Div(tensor.Ones[float32](e.rate.Shape()), e.rate)
}

// Sample draws one duration per position.
func (e *Exponential) Sample(src rand.Source) *tensor.Tensor[float32] {
	out := tensor.New[float32](e.rate.Shape())
	rates := e.rate.Data()
	for i := range out.Data() {
		d := distuv.Exponential{Rate: float64(rates[i]), Src: src}
		out.Data()[i] = float32(d.Rand())
	}
	return out
}
