package tensor

import "golang.org/x/exp/rand"

// Zeros creates a tensor filled with zero values.
func Zeros[T DType](shape Shape) *Tensor[T] {
	return New[T](shape)
}

// Ones creates a tensor filled with ones (true for bool tensors).
func Ones[T DType](shape Shape) *Tensor[T] {
	t := New[T](shape)
	var one T
	switch p := any(&one).(type) {
	case *float32:
		*p = 1
	case *int64:
		*p = 1
	case *bool:
		*p = true
	}
	for i := range t.data {
		t.data[i] = one
	}
	return t
}

// Full creates a tensor filled with the given value.
func Full[T DType](shape Shape, value T) *Tensor[T] {
	t := New[T](shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// ZerosLike creates a zero tensor with the same shape as t.
func ZerosLike[T DType](t *Tensor[T]) *Tensor[T] {
	return New[T](t.shape)
}

// OnesLike creates a ones tensor with the same shape as t.
func OnesLike[T DType](t *Tensor[T]) *Tensor[T] {
	return Ones[T](t.shape)
}

// Randn creates a float32 tensor with values drawn from the standard normal
// distribution using rng. A caller-supplied source keeps initialization
// reproducible under a fixed seed.
func Randn(shape Shape, rng *rand.Rand) *Tensor[float32] {
	t := New[float32](shape)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Uniform creates a float32 tensor with values drawn uniformly from [lo, hi).
func Uniform(shape Shape, lo, hi float32, rng *rand.Rand) *Tensor[float32] {
	t := New[float32](shape)
	for i := range t.data {
		t.data[i] = lo + (hi-lo)*rng.Float32()
	}
	return t
}
