package distribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

func TestCategoricalUniformFromZeroLogits(t *testing.T) {
	logits := tensor.Zeros[float32](tensor.Shape{2, 3, 5})
	dist := NewCategorical(logits)

	require.Equal(t, 5, dist.NumClasses())
	probs := dist.Probs()
	for _, p := range probs.Data() {
		assert.InDelta(t, 0.2, p, 1e-6)
	}
}

func TestCategoricalLogProbGathersLabels(t *testing.T) {
	logits := tensor.MustFromSlice([]float32{0, 1, 2, -1, 0, 1}, tensor.Shape{2, 3})
	dist := NewCategorical(logits)
	labels := tensor.MustFromSlice([]int64{2, 0}, tensor.Shape{2})

	lp := dist.LogProb(labels)
	lps := dist.LogProbs()
	assert.InDelta(t, float64(lps.At(0, 2)), float64(lp.At(0)), 1e-6)
	assert.InDelta(t, float64(lps.At(1, 0)), float64(lp.At(1)), 1e-6)
}

func TestCategoricalSampleRespectsSupport(t *testing.T) {
	// Probability mass concentrated on class 3.
	logits := tensor.MustFromSlice([]float32{-100, -100, -100, 100, -100}, tensor.Shape{1, 5})
	dist := NewCategorical(logits)

	src := rand.NewSource(11)
	for i := 0; i < 20; i++ {
		got := dist.Sample(src)
		assert.Equal(t, int64(3), got.At(0))
	}
}

func TestBernoulliLogProbMatchesBCE(t *testing.T) {
	logits := tensor.MustFromSlice([]float32{0.5, -1.5, 3}, tensor.Shape{1, 3})
	targets := tensor.MustFromSlice([]float32{1, 0, 1}, tensor.Shape{1, 3})
	dist := NewBernoulli(logits)

	lp := dist.LogProb(targets)
	for i, x := range logits.Data() {
		p := 1 / (1 + math.Exp(-float64(x)))
		want := math.Log(p)
		if targets.Data()[i] == 0 {
			want = math.Log(1 - p)
		}
		assert.InDelta(t, want, float64(lp.Data()[i]), 1e-5)
	}
}

func TestNormalLogProbMatchesGonum(t *testing.T) {
	loc := tensor.MustFromSlice([]float32{0, 1, -2}, tensor.Shape{3})
	scale := tensor.MustFromSlice([]float32{1, 0.5, 2}, tensor.Shape{3})
	x := tensor.MustFromSlice([]float32{0.3, 1.4, -3}, tensor.Shape{3})

	lp := NewNormal(loc, scale).LogProb(x)
	for i := range lp.Data() {
		want := distuv.Normal{Mu: float64(loc.Data()[i]), Sigma: float64(scale.Data()[i])}.LogProb(float64(x.Data()[i]))
		assert.InDelta(t, want, float64(lp.Data()[i]), 1e-5)
	}
}

func TestExponentialLogProbMatchesGonum(t *testing.T) {
	rate := tensor.MustFromSlice([]float32{1, 2.5}, tensor.Shape{1, 2})
	x := tensor.MustFromSlice([]float32{0.7, 0.1}, tensor.Shape{1, 2})

	lp := NewExponential(rate).LogProb(x)
	for i := range lp.Data() {
		want := distuv.Exponential{Rate: float64(rate.Data()[i])}.LogProb(float64(x.Data()[i]))
		assert.InDelta(t, want, float64(lp.Data()[i]), 1e-5)
	}
}

func TestExponentialUnitRateAtOne(t *testing.T) {
	rate := tensor.Ones[float32](tensor.Shape{1, 1})
	x := tensor.Ones[float32](tensor.Shape{1, 1})
	lp := NewExponential(rate).LogProb(x)
	// log p = log(1) - 1*1 = -1
	assert.InDelta(t, -1.0, float64(lp.At(0, 0)), 1e-6)
}

func TestLogNormalMixtureSingleComponentMatchesLogNormal(t *testing.T) {
	// One component, loc 0, scale 1, no standardization: plain LogNormal(0, 1).
	locs := tensor.Zeros[float32](tensor.Shape{1, 2, 1})
	logScales := tensor.Zeros[float32](tensor.Shape{1, 2, 1})
	logWeights := tensor.Zeros[float32](tensor.Shape{1, 2, 1})
	m := NewLogNormalMixture(locs, logScales, logWeights, 0, 1)

	x := tensor.MustFromSlice([]float32{0.5, 2.0}, tensor.Shape{1, 2})
	lp := m.LogProb(x)
	for i := range lp.Data() {
		want := distuv.LogNormal{Mu: 0, Sigma: 1}.LogProb(float64(x.Data()[i]))
		assert.InDelta(t, want, float64(lp.Data()[i]), 1e-5)
	}
}

func TestLogNormalMixtureStandardization(t *testing.T) {
	// With standardization (meanLog, stdLog), a zero-parameter component is
	// LogNormal(meanLog, stdLog).
	meanLog, stdLog := float32(1.5), float32(0.5)
	locs := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	logScales := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	logWeights := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	m := NewLogNormalMixture(locs, logScales, logWeights, meanLog, stdLog)

	x := tensor.MustFromSlice([]float32{3.7}, tensor.Shape{1, 1})
	lp := m.LogProb(x)
	want := distuv.LogNormal{Mu: float64(meanLog), Sigma: float64(stdLog)}.LogProb(float64(x.At(0, 0)))
	assert.InDelta(t, want, float64(lp.At(0, 0)), 1e-5)
}

func TestLogNormalMixtureWeightsNormalized(t *testing.T) {
	// Two identical components with arbitrary unnormalized weights must give
	// the same density as one component.
	locs := tensor.Zeros[float32](tensor.Shape{1, 1, 2})
	logScales := tensor.Zeros[float32](tensor.Shape{1, 1, 2})
	logWeights := tensor.MustFromSlice([]float32{3, -1}, tensor.Shape{1, 1, 2})
	m := NewLogNormalMixture(locs, logScales, logWeights, 0, 1)

	x := tensor.MustFromSlice([]float32{1.3}, tensor.Shape{1, 1})
	lp := m.LogProb(x)
	want := distuv.LogNormal{Mu: 0, Sigma: 1}.LogProb(float64(x.At(0, 0)))
	assert.InDelta(t, want, float64(lp.At(0, 0)), 1e-5)
}

func TestLogNormalMixtureMeanSingleComponent(t *testing.T) {
	locs := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	logScales := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	logWeights := tensor.Zeros[float32](tensor.Shape{1, 1, 1})
	m := NewLogNormalMixture(locs, logScales, logWeights, 0, 1)

	// E[LogNormal(0,1)] = exp(1/2)
	assert.InDelta(t, math.Exp(0.5), float64(m.Mean().At(0, 0)), 1e-5)
}

func TestDurationSamplesArePositive(t *testing.T) {
	src := rand.NewSource(5)

	exp := NewExponential(tensor.Full(tensor.Shape{2, 3}, float32(2)))
	for _, v := range exp.Sample(src).Data() {
		assert.Greater(t, v, float32(0))
	}

	m := NewLogNormalMixture(
		tensor.Zeros[float32](tensor.Shape{2, 3, 2}),
		tensor.Zeros[float32](tensor.Shape{2, 3, 2}),
		tensor.Zeros[float32](tensor.Shape{2, 3, 2}),
		0, 1,
	)
	for _, v := range m.Sample(src).Data() {
		assert.Greater(t, v, float32(0))
	}
}
