package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// LogNormalMixture is a per-position mixture of log-normal distributions over
// durations. Each position carries K components with location, log-scale and
// log-weight parameters ([batch, seq, K]); the underlying normal is over
// log-durations standardized by (meanLog, stdLog):
//
//	z = (ln x - meanLog) / stdLog,  z ~ Σ_k w_k · N(loc_k, exp(logScale_k))
//
// With meanLog = 0 and stdLog = 1 the standardization is the identity.
type LogNormalMixture struct {
	locs       *tensor.Tensor[float32] // [B, S, K]
	logScales  *tensor.Tensor[float32] // [B, S, K]
	logWeights *tensor.Tensor[float32] // [B, S, K], unnormalized
	meanLog    float32
	stdLog     float32
}

// NewLogNormalMixture creates a log-normal mixture duration distribution.
// The three parameter tensors must share the shape [batch, seq, components];
// stdLog must be strictly positive.
func NewLogNormalMixture(locs, logScales, logWeights *tensor.Tensor[float32], meanLog, stdLog float32) *LogNormalMixture {
	if !locs.Shape().Equal(logScales.Shape()) || !locs.Shape().Equal(logWeights.Shape()) {
		panic(fmt.Sprintf("NewLogNormalMixture: parameter shapes differ: %v, %v, %v",
			locs.Shape(), logScales.Shape(), logWeights.Shape()))
	}
	if len(locs.Shape()) != 3 {
		panic(fmt.Sprintf("NewLogNormalMixture: expected [batch, seq, components], got %v", locs.Shape()))
	}
	if stdLog <= 0 {
		panic(fmt.Sprintf("NewLogNormalMixture: stdLog must be > 0, got %v", stdLog))
	}
	return &LogNormalMixture{
		locs:       locs,
		logScales:  logScales,
		logWeights: logWeights,
		meanLog:    meanLog,
		stdLog:     stdLog,
	}
}

// Components returns the number of mixture components.
func (m *LogNormalMixture) Components() int {
	return m.locs.Dim(-1)
}

// LogProb returns the per-position log-density of positive durations x
// ([batch, seq]). The change of variables from z back to x contributes
// -ln(x) - ln(stdLog).
func (m *LogNormalMixture) LogProb(x *tensor.Tensor[float32]) *tensor.Tensor[float32] {
	shape := m.locs.Shape()
	if !x.Shape().Equal(shape[:2]) {
		panic(fmt.Sprintf("LogNormalMixture.LogProb: x shape %v does not match batch shape %v",
			x.Shape(), shape[:2]))
	}
	b, s, k := shape[0], shape[1], shape[2]

	logWNorm := tensor.LogSoftmax(m.logWeights, -1)

	out := tensor.New[float32](tensor.Shape{b, s})
	locs, scales, logW := m.locs.Data(), m.logScales.Data(), logWNorm.Data()
	for p := 0; p < b*s; p++ {
		xv := float64(x.Data()[p])
		z := (math.Log(xv) - float64(m.meanLog)) / float64(m.stdLog)

		// logsumexp over components of logw_k + N(z; loc_k, scale_k)
		best := math.Inf(-1)
		terms := make([]float64, k)
		for c := 0; c < k; c++ {
			i := p*k + c
			sigma := math.Exp(float64(scales[i]))
			terms[c] = float64(logW[i]) + normalLogPDF(z, float64(locs[i]), sigma)
			if terms[c] > best {
				best = terms[c]
			}
		}
		var sum float64
		for _, t := range terms {
			sum += math.Exp(t - best)
		}
		lp := best + math.Log(sum) - math.Log(xv) - math.Log(float64(m.stdLog))
		out.Data()[p] = float32(lp)
	}
	return out
}

// Mean returns the per-position expected duration:
//
//	E[x] = Σ_k w_k · exp(meanLog + stdLog·loc_k + (stdLog·σ_k)²/2)
func (m *LogNormalMixture) Mean() *tensor.Tensor[float32] {
	shape := m.locs.Shape()
	b, s, k := shape[0], shape[1], shape[2]
	weights := tensor.Softmax(m.logWeights, -1)

	out := tensor.New[float32](tensor.Shape{b, s})
	locs, scales, w := m.locs.Data(), m.logScales.Data(), weights.Data()
	for p := 0; p < b*s; p++ {
		var mean float64
		for c := 0; c < k; c++ {
			i := p*k + c
			sigma := float64(m.stdLog) * math.Exp(float64(scales[i]))
			mu := float64(m.meanLog) + float64(m.stdLog)*float64(locs[i])
			mean += float64(w[i]) * math.Exp(mu+sigma*sigma/2)
		}
		out.Data()[p] = float32(mean)
	}
	return out
}

// Sample draws one duration per position: a component is drawn from the
// mixture weights, a standardized log-duration from that component's normal,
// and the result is mapped back through exp(z·stdLog + meanLog).
func (m *LogNormalMixture) Sample(src rand.Source) *tensor.Tensor[float32] {
	shape := m.locs.Shape()
	b, s, k := shape[0], shape[1], shape[2]
	weights := tensor.Softmax(m.logWeights, -1)

	out := tensor.New[float32](tensor.Shape{b, s})
	locs, scales, w := m.locs.Data(), m.logScales.Data(), weights.Data()
	comp := make([]float64, k)
	for p := 0; p < b*s; p++ {
		for c := 0; c < k; c++ {
			comp[c] = float64(w[p*k+c])
		}
		c := int(distuv.NewCategorical(comp, src).Rand())
		i := p*k + c
		normal := distuv.Normal{
			Mu:    float64(locs[i]),
			Sigma: math.Exp(float64(scales[i])),
			Src:   src,
		}
		z := normal.Rand()
		out.Data()[p] = float32(math.Exp(z*float64(m.stdLog) + float64(m.meanLog)))
	}
	return out
}
