// Package tensor implements dense row-major tensors over float32, int64 and
// bool element types, together with the bulk operations the event-stream
// model layers are written in: broadcasted arithmetic, comparisons producing
// boolean masks, masked selection, gather/scatter indexing, concatenation and
// slicing, and numerically stable softmax-family reductions.
//
// All operations are pure: they allocate a fresh contiguous result and never
// mutate their operands, which keeps model forward passes safe for concurrent
// read-only use of shared parameters.
package tensor

import (
	"fmt"
	"strings"
)

// DType is the constraint for supported tensor element types.
type DType interface {
	float32 | int64 | bool
}

// Number is the constraint for arithmetic element types.
type Number interface {
	float32 | int64
}

// Tensor is a dense, contiguous, row-major tensor with element type T.
//
// Example:
//
//	t := tensor.Zeros[float32](tensor.Shape{3, 4})
//	u := tensor.AddScalar(t, 1)
type Tensor[T DType] struct {
	data   []T
	shape  Shape
	stride []int
}

// New creates a zero-valued tensor with the given shape.
// Panics if the shape is invalid; shape errors at this level are programming
// errors, not data errors.
func New[T DType](shape Shape) *Tensor[T] {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	return &Tensor[T]{
		data:   make([]T, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := New[T](shape)
	copy(t.data, data)
	return t, nil
}

// MustFromSlice is FromSlice panicking on error. Intended for tests and
// literal tensors whose shape is known statically.
func MustFromSlice[T DType](data []T, shape Shape) *Tensor[T] {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's row-major memory strides.
func (t *Tensor[T]) Strides() []int {
	return t.stride
}

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int {
	return t.shape.NumElements()
}

// Dim returns the size of dimension i, counting negative indices from the end.
func (t *Tensor[T]) Dim(i int) int {
	if i < 0 {
		i += len(t.shape)
	}
	return t.shape[i]
}

// Data returns the tensor's backing slice.
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// Item returns the value of a one-element tensor.
// Panics if the tensor holds more than one element.
func (t *Tensor[T]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for one-element tensors, got shape %v", t.shape))
	}
	return t.data[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) At(indices ...int) T {
	return t.data[t.offsetOf(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.data[t.offsetOf(indices)] = value
}

func (t *Tensor[T]) offsetOf(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.stride[i]
	}
	return offset
}

// Clone creates a deep copy of the tensor.
func (t *Tensor[T]) Clone() *Tensor[T] {
	out := New[T](t.shape)
	copy(out.data, t.data)
	return out
}

// Reshape returns a tensor with the same data and a new shape.
// The element count must be preserved.
func (t *Tensor[T]) Reshape(dims ...int) *Tensor[T] {
	newShape := Shape(dims)
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, t.NumElements(), newShape, newShape.NumElements()))
	}
	out := New[T](newShape)
	copy(out.data, t.data)
	return out
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor%v", t.shape)
	if t.NumElements() <= 8 {
		fmt.Fprintf(&b, " %v", t.data)
	}
	return b.String()
}

// normDim resolves a possibly-negative dimension index against rank.
// Panics if the dimension is out of range.
func normDim(dim, rank int) int {
	d := dim
	if d < 0 {
		d += rank
	}
	if d < 0 || d >= rank {
		panic(fmt.Sprintf("dimension %d out of range for rank %d", dim, rank))
	}
	return d
}
