package model

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

type staticEncoder struct {
	encoded *tensor.Tensor[float32]
}

func (e staticEncoder) Encode(*data.Batch) (*tensor.Tensor[float32], error) {
	return e.encoded, nil
}

func testConfig(hiddenSize int) *config.StructuredTransformerConfig {
	return &config.StructuredTransformerConfig{
		ProcessingMode:            config.ConditionallyIndependent,
		HiddenSize:                hiddenSize,
		VocabSizesByMeasurement:   map[string]int{"event_type": 3},
		VocabOffsetsByMeasurement: map[string]int{"event_type": 0},
		MeasurementsIdxmap:        map[string]int{"event_type": 1},
		MeasurementsPerGenerativeMode: map[config.GenerativeMode][]string{
			config.SingleLabelClassification: {"event_type"},
		},
		TTEHeadType: config.TTEExponential,
	}
}

func testBatch() *data.Batch {
	return &data.Batch{
		DynamicMeasurementIndices: tensor.MustFromSlice([]int64{
			1, 1, 1,
			1, 1, 0,
		}, tensor.Shape{2, 3, 1}),
		DynamicIndices: tensor.MustFromSlice([]int64{
			0, 1, 2,
			1, 0, 0,
		}, tensor.Shape{2, 3, 1}),
		DynamicValues:     tensor.Zeros[float32](tensor.Shape{2, 3, 1}),
		DynamicValuesMask: tensor.Zeros[bool](tensor.Shape{2, 3, 1}),
		EventMask: tensor.MustFromSlice([]bool{
			true, true, true,
			true, true, false,
		}, tensor.Shape{2, 3}),
		Time: tensor.MustFromSlice([]float32{
			0, 1, 3,
			0, 2, 5,
		}, tensor.Shape{2, 3}),
		StreamLabels: map[string]*tensor.Tensor[int64]{
			"readmission": tensor.MustFromSlice([]int64{0, 1}, tensor.Shape{2}),
			"severity":    tensor.MustFromSlice([]int64{2, 0}, tensor.Shape{2}),
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerativeSequenceModelForward(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := staticEncoder{encoded: tensor.Randn(tensor.Shape{2, 3, 4}, rng)}

	m, err := NewGenerativeSequenceModel(testConfig(4), enc, rng, quietLogger())
	require.NoError(t, err)

	out, err := m.Forward(testBatch(), false)
	require.NoError(t, err)
	require.NotNil(t, out.Loss)
	assert.Contains(t, out.Predictions.Classification, "event_type")

	gen, err := m.Forward(testBatch(), true)
	require.NoError(t, err)
	assert.Nil(t, gen.Loss)
	assert.Nil(t, gen.Labels)
}

func TestStreamClassificationBinaryLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := staticEncoder{encoded: tensor.Randn(tensor.Shape{2, 3, 4}, rng)}

	m, err := NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		Task:      "readmission",
		NumLabels: 2,
		Binary:    true,
		Pooling:   PoolMean,
	}, enc, rng)
	require.NoError(t, err)

	// Zero logits are maximally uncertain: BCE is ln 2 per stream
	// regardless of the label.
	for _, p := range m.logits.Parameters() {
		d := p.Tensor().Data()
		for i := range d {
			d[i] = 0
		}
	}

	out, err := m.Forward(testBatch())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2}, out.Logits.Shape())
	assert.InDelta(t, math.Log(2), out.Loss, 1e-5)
}

func TestStreamClassificationMulticlassLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := staticEncoder{encoded: tensor.Randn(tensor.Shape{2, 3, 4}, rng)}

	m, err := NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		Task:      "severity",
		NumLabels: 3,
		Pooling:   PoolCLS,
	}, enc, rng)
	require.NoError(t, err)

	for _, p := range m.logits.Parameters() {
		d := p.Tensor().Data()
		for i := range d {
			d[i] = 0
		}
	}

	out, err := m.Forward(testBatch())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out.Logits.Shape())
	assert.InDelta(t, math.Log(3), out.Loss, 1e-5)
}

func TestStreamClassificationPooling(t *testing.T) {
	// One hidden unit and an identity logit layer make the logit equal
	// the pooled encoding value.
	encoded := tensor.MustFromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3, 1})
	enc := staticEncoder{encoded: encoded}

	build := func(pooling PoolingMethod) *StreamClassificationModel {
		m, err := NewStreamClassificationModel(testConfig(1), StreamClassificationConfig{
			Task:      "readmission",
			NumLabels: 2,
			Binary:    true,
			Pooling:   pooling,
		}, enc, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		m.logits.Weight().Tensor().Set(1, 0, 0)
		m.logits.Bias().Tensor().Set(0, 0)
		return m
	}

	out, err := build(PoolCLS).Forward(testBatch())
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Logits.At(0), 1e-6)
	assert.InDelta(t, 4, out.Logits.At(1), 1e-6)

	out, err = build(PoolLast).Forward(testBatch())
	require.NoError(t, err)
	assert.InDelta(t, 3, out.Logits.At(0), 1e-6)

	// Mean pooling honors the event mask: sequence 1's padding event is
	// excluded, so its pooled value is (4+5)/2.
	out, err = build(PoolMean).Forward(testBatch())
	require.NoError(t, err)
	assert.InDelta(t, 2, out.Logits.At(0), 1e-6)
	assert.InDelta(t, 4.5, out.Logits.At(1), 1e-6)

	out, err = build(PoolMax).Forward(testBatch())
	require.NoError(t, err)
	assert.InDelta(t, 3, out.Logits.At(0), 1e-6)
	assert.InDelta(t, 5, out.Logits.At(1), 1e-6)
}

func TestStreamClassificationRejectsBadConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := staticEncoder{encoded: tensor.Zeros[float32](tensor.Shape{2, 3, 4})}

	_, err := NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		Task:      "readmission",
		NumLabels: 2,
		Pooling:   "attention",
	}, enc, rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pooling")

	_, err = NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		NumLabels: 2,
		Pooling:   PoolCLS,
	}, enc, rng)
	require.Error(t, err)

	_, err = NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		Task:      "readmission",
		NumLabels: 3,
		Binary:    true,
		Pooling:   PoolCLS,
	}, enc, rng)
	require.Error(t, err)
}

func TestStreamClassificationRejectsMissingTaskLabels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := staticEncoder{encoded: tensor.Zeros[float32](tensor.Shape{2, 3, 4})}

	m, err := NewStreamClassificationModel(testConfig(4), StreamClassificationConfig{
		Task:      "mortality",
		NumLabels: 2,
		Binary:    true,
		Pooling:   PoolCLS,
	}, enc, rng)
	require.NoError(t, err)

	_, err = m.Forward(testBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mortality")
}
