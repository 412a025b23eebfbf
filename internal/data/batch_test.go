package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

func validBatch() *Batch {
	return &Batch{
		DynamicIndices:            tensor.Zeros[int64](tensor.Shape{2, 3, 4}),
		DynamicMeasurementIndices: tensor.Zeros[int64](tensor.Shape{2, 3, 4}),
		DynamicValues:             tensor.Zeros[float32](tensor.Shape{2, 3, 4}),
		DynamicValuesMask:         tensor.Zeros[bool](tensor.Shape{2, 3, 4}),
		EventMask:                 tensor.Ones[bool](tensor.Shape{2, 3}),
		Time:                      tensor.Zeros[float32](tensor.Shape{2, 3}),
	}
}

func TestBatchValidateAcceptsConsistentShapes(t *testing.T) {
	require.NoError(t, validBatch().Validate())

	b := validBatch()
	b.StreamLabels = map[string]*tensor.Tensor[int64]{
		"readmission": tensor.Zeros[int64](tensor.Shape{2}),
	}
	require.NoError(t, b.Validate())
}

func TestBatchValidateRejectsShapeMismatch(t *testing.T) {
	b := validBatch()
	b.DynamicValues = tensor.Zeros[float32](tensor.Shape{2, 3, 5})
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamic_values")

	b = validBatch()
	b.EventMask = tensor.Ones[bool](tensor.Shape{2, 4})
	require.Error(t, b.Validate())

	b = validBatch()
	b.StreamLabels = map[string]*tensor.Tensor[int64]{
		"readmission": tensor.Zeros[int64](tensor.Shape{3}),
	}
	require.Error(t, b.Validate())
}

func TestBatchValidateRejectsMissingComponents(t *testing.T) {
	b := validBatch()
	b.Time = nil
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time")
}

func TestBatchDims(t *testing.T) {
	B, S, K := validBatch().Dims()
	assert.Equal(t, 2, B)
	assert.Equal(t, 3, S)
	assert.Equal(t, 4, K)
}
