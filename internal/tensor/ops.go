package tensor

import (
	"fmt"
	"math"
)

// expandTo materializes t broadcast to target shape. target must be reachable
// from t.shape under NumPy broadcasting rules.
func expandTo[T DType](t *Tensor[T], target Shape) *Tensor[T] {
	if t.shape.Equal(target) {
		return t
	}
	rank := len(target)
	pad := rank - len(t.shape)
	if pad < 0 {
		panic(fmt.Sprintf("cannot expand %v to lower-rank %v", t.shape, target))
	}

	// Per-dimension source strides, 0 where the source dimension broadcasts.
	srcStride := make([]int, rank)
	for i := 0; i < rank; i++ {
		if i < pad {
			srcStride[i] = 0
			continue
		}
		sDim := t.shape[i-pad]
		switch {
		case sDim == target[i]:
			srcStride[i] = t.stride[i-pad]
		case sDim == 1:
			srcStride[i] = 0
		default:
			panic(fmt.Sprintf("cannot expand %v to %v", t.shape, target))
		}
	}

	out := New[T](target)
	idx := make([]int, rank)
	for flat := range out.data {
		src := 0
		for i := 0; i < rank; i++ {
			src += idx[i] * srcStride[i]
		}
		out.data[flat] = t.data[src]

		for i := rank - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < target[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// Expand broadcasts t to the given shape, materializing the result.
func Expand[T DType](t *Tensor[T], shape Shape) *Tensor[T] {
	if _, err := BroadcastShapes(t.shape, shape); err != nil {
		panic(fmt.Sprintf("Expand: %v", err))
	}
	return expandTo(t, shape)
}

// broadcastPair returns a and b expanded to their common broadcast shape.
func broadcastPair[T, U DType](a *Tensor[T], b *Tensor[U]) (*Tensor[T], *Tensor[U]) {
	if a.shape.Equal(b.shape) {
		return a, b
	}
	common, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		panic(err.Error())
	}
	return expandTo(a, common), expandTo(b, common)
}

func zip[T, U, V DType](a *Tensor[T], b *Tensor[U], f func(T, U) V) *Tensor[V] {
	a, b = broadcastPair(a, b)
	out := New[V](a.shape)
	for i := range out.data {
		out.data[i] = f(a.data[i], b.data[i])
	}
	return out
}

func unary[T, V DType](t *Tensor[T], f func(T) V) *Tensor[V] {
	out := New[V](t.shape)
	for i := range t.data {
		out.data[i] = f(t.data[i])
	}
	return out
}

// Add returns a + b with broadcasting.
func Add[T Number](a, b *Tensor[T]) *Tensor[T] {
	return zip(a, b, func(x, y T) T { return x + y })
}

// Sub returns a - b with broadcasting.
func Sub[T Number](a, b *Tensor[T]) *Tensor[T] {
	return zip(a, b, func(x, y T) T { return x - y })
}

// Mul returns a * b element-wise with broadcasting.
func Mul[T Number](a, b *Tensor[T]) *Tensor[T] {
	return zip(a, b, func(x, y T) T { return x * y })
}

// Div returns a / b element-wise with broadcasting.
func Div[T Number](a, b *Tensor[T]) *Tensor[T] {
	return zip(a, b, func(x, y T) T { return x / y })
}

// AddScalar returns t + s.
func AddScalar[T Number](t *Tensor[T], s T) *Tensor[T] {
	return unary(t, func(x T) T { return x + s })
}

// SubScalar returns t - s.
func SubScalar[T Number](t *Tensor[T], s T) *Tensor[T] {
	return unary(t, func(x T) T { return x - s })
}

// MulScalar returns t * s.
func MulScalar[T Number](t *Tensor[T], s T) *Tensor[T] {
	return unary(t, func(x T) T { return x * s })
}

// DivScalar returns t / s.
func DivScalar[T Number](t *Tensor[T], s T) *Tensor[T] {
	return unary(t, func(x T) T { return x / s })
}

// Neg returns -t.
func Neg[T Number](t *Tensor[T]) *Tensor[T] {
	return unary(t, func(x T) T { return -x })
}

// Exp returns e^t element-wise.
func Exp(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 { return float32(math.Exp(float64(x))) })
}

// Log returns the natural logarithm element-wise.
func Log(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 { return float32(math.Log(float64(x))) })
}

// Sqrt returns the square root element-wise.
func Sqrt(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 { return float32(math.Sqrt(float64(x))) })
}

// Abs returns the absolute value element-wise.
func Abs(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 {
		if x < 0 {
			return -x
		}
		return x
	})
}

// Softplus returns log(1 + e^t) element-wise, computed stably.
func Softplus(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 { return softplus64(x) })
}

func softplus64(x float32) float32 {
	// For large x, log(1+e^x) == x to float32 precision.
	if x > 30 {
		return x
	}
	return float32(math.Log1p(math.Exp(float64(x))))
}

// Sigmoid returns 1 / (1 + e^-t) element-wise.
func Sigmoid(t *Tensor[float32]) *Tensor[float32] {
	return unary(t, func(x float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(x))))
	})
}

// AllFinite reports whether every element of t is a finite number.
func AllFinite(t *Tensor[float32]) bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ToFloat32 converts an integer or boolean tensor to float32
// (true maps to 1, false to 0).
func ToFloat32[T DType](t *Tensor[T]) *Tensor[float32] {
	return unary(t, func(x T) float32 {
		switch v := any(x).(type) {
		case float32:
			return v
		case int64:
			return float32(v)
		case bool:
			if v {
				return 1
			}
			return 0
		}
		return 0
	})
}

// ToInt64 converts a tensor to int64 (true maps to 1, false to 0; floats
// truncate toward zero).
func ToInt64[T DType](t *Tensor[T]) *Tensor[int64] {
	return unary(t, func(x T) int64 {
		switch v := any(x).(type) {
		case float32:
			return int64(v)
		case int64:
			return v
		case bool:
			if v {
				return 1
			}
			return 0
		}
		return 0
	})
}

// MatMul computes the 2D matrix product a @ b.
// a has shape [M, K], b has shape [K, N]; the result has shape [M, N].
func MatMul(a, b *Tensor[float32]) *Tensor[float32] {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic(fmt.Sprintf("MatMul: expected 2D tensors, got %v and %v", a.shape, b.shape))
	}
	m, k := a.shape[0], a.shape[1]
	k2, n := b.shape[0], b.shape[1]
	if k != k2 {
		panic(fmt.Sprintf("MatMul: inner dimensions do not match: %v vs %v", a.shape, b.shape))
	}

	out := New[float32](Shape{m, n})
	for i := 0; i < m; i++ {
		arow := a.data[i*k : (i+1)*k]
		orow := out.data[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := arow[kk]
			if av == 0 {
				continue
			}
			brow := b.data[kk*n : (kk+1)*n]
			for j := 0; j < n; j++ {
				orow[j] += av * brow[j]
			}
		}
	}
	return out
}
