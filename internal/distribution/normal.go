package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

const log2Pi = 1.8378770664093453

// Normal is an element-wise Gaussian distribution with per-position location
// and scale tensors of identical shape. The regression heads use it with
// parameters gathered per observed regression-target index.
type Normal struct {
	loc   *tensor.Tensor[float32]
	scale *tensor.Tensor[float32]
}

// NewNormal creates an element-wise Gaussian. loc and scale must share a
// shape and scale must be strictly positive.
func NewNormal(loc, scale *tensor.Tensor[float32]) *Normal {
	if !loc.Shape().Equal(scale.Shape()) {
		panic(fmt.Sprintf("NewNormal: loc shape %v does not match scale shape %v", loc.Shape(), scale.Shape()))
	}
	return &Normal{loc: loc, scale: scale}
}

// Loc returns the per-position means.
func (n *Normal) Loc() *tensor.Tensor[float32] {
	return n.loc
}

// Scale returns the per-position standard deviations.
func (n *Normal) Scale() *tensor.Tensor[float32] {
	return n.scale
}

// LogProb returns the element-wise Gaussian log-density of x.
func (n *Normal) LogProb(x *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	if !x.Shape().Equal(n.loc.Shape()) {
		panic(fmt.Sprintf("Normal.LogProb: x shape %v does not match distribution shape %v",
			x.Shape(), n.loc.Shape()))
	}
	z := tensor.Div(tensor.Sub(x, n.loc), n.scale)
	quad := tensor.MulScalar(tensor.Mul(z, z), 0.5)
	logScale := tensor.Log(n.scale)
	out := tensor.Neg(tensor.Add(quad, logScale))
	return tensor.AddScalar(out, float32(-0.5*log2Pi))
}

// Mean returns the per-position means.
func (n *Normal) Mean() *tensor.Tensor[float32] {
	return n.loc.Clone()
}

// Sample draws one value per position.
func (n *Normal) Sample(src rand.Source) *tensor.Tensor[float32] {
	out := tensor.New[float32](n.loc.Shape())
	locs, scales := n.loc.Data(), n.scale.Data()
	for i := range out.Data() {
		d := distuv.Normal{Mu: float64(locs[i]), Sigma: float64(scales[i]), Src: src}
		out.Data()[i] = float32(d.Rand())
	}
	return out
}

// normalLogPDF is the scalar Gaussian log-density, used by the mixture TTE
// distribution where per-component work is already scalar.
func normalLogPDF(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return -0.5*z*z - math.Log(sigma) - 0.5*log2Pi
}
