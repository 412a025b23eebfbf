package tensor

import "math"

// reducedShape computes the result shape of reducing dim, optionally keeping
// it as a size-1 dimension.
func reducedShape(shape Shape, dim int, keepDim bool) Shape {
	out := make(Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		out = Shape{1}
	}
	return out
}

// dimSpans returns the outer, reduced, and inner extents for reducing dim.
func dimSpans(shape Shape, dim int) (outer, n, inner int) {
	outer, n, inner = 1, shape[dim], 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, n, inner
}

// Sum returns the total sum of all elements.
func Sum[T Number](t *Tensor[T]) T {
	var s T
	for _, v := range t.data {
		s += v
	}
	return s
}

// SumDim sums along the given dimension (negative dims count from the end).
func SumDim[T Number](t *Tensor[T], dim int, keepDim bool) *Tensor[T] {
	d := normDim(dim, len(t.shape))
	outer, n, inner := dimSpans(t.shape, d)
	out := New[T](reducedShape(t.shape, d, keepDim))
	for o := 0; o < outer; o++ {
		for j := 0; j < n; j++ {
			base := (o*n + j) * inner
			obase := o * inner
			for i := 0; i < inner; i++ {
				out.data[obase+i] += t.data[base+i]
			}
		}
	}
	return out
}

// MeanDim averages along the given dimension.
func MeanDim(t *Tensor[float32], dim int, keepDim bool) *Tensor[float32] {
	d := normDim(dim, len(t.shape))
	return DivScalar(SumDim(t, dim, keepDim), float32(t.shape[d]))
}

// MaxDim returns the maximum values along the given dimension.
func MaxDim(t *Tensor[float32], dim int, keepDim bool) *Tensor[float32] {
	d := normDim(dim, len(t.shape))
	outer, n, inner := dimSpans(t.shape, d)
	out := Full(reducedShape(t.shape, d, keepDim), float32(math.Inf(-1)))
	for o := 0; o < outer; o++ {
		for j := 0; j < n; j++ {
			base := (o*n + j) * inner
			obase := o * inner
			for i := 0; i < inner; i++ {
				if v := t.data[base+i]; v > out.data[obase+i] {
					out.data[obase+i] = v
				}
			}
		}
	}
	return out
}

// Argmax returns the index of the maximum value along the given dimension.
func Argmax(t *Tensor[float32], dim int) *Tensor[int64] {
	d := normDim(dim, len(t.shape))
	outer, n, inner := dimSpans(t.shape, d)
	out := New[int64](reducedShape(t.shape, d, false))
	best := Full(reducedShape(t.shape, d, false), float32(math.Inf(-1)))
	for o := 0; o < outer; o++ {
		for j := 0; j < n; j++ {
			base := (o*n + j) * inner
			obase := o * inner
			for i := 0; i < inner; i++ {
				if v := t.data[base+i]; v > best.data[obase+i] {
					best.data[obase+i] = v
					out.data[obase+i] = int64(j)
				}
			}
		}
	}
	return out
}

// Any reduces a boolean tensor with logical OR along the given dimension.
func Any(t *Tensor[bool], dim int, keepDim bool) *Tensor[bool] {
	d := normDim(dim, len(t.shape))
	outer, n, inner := dimSpans(t.shape, d)
	out := New[bool](reducedShape(t.shape, d, keepDim))
	for o := 0; o < outer; o++ {
		for j := 0; j < n; j++ {
			base := (o*n + j) * inner
			obase := o * inner
			for i := 0; i < inner; i++ {
				if t.data[base+i] {
					out.data[obase+i] = true
				}
			}
		}
	}
	return out
}

// LogSumExp computes log(sum(exp(t))) along the given dimension using the
// max-shift trick for numerical stability.
func LogSumExp(t *Tensor[float32], dim int, keepDim bool) *Tensor[float32] {
	d := normDim(dim, len(t.shape))
	outer, n, inner := dimSpans(t.shape, d)
	maxes := MaxDim(t, d, false)
	out := New[float32](reducedShape(t.shape, d, keepDim))
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			m := maxes.data[o*inner+i]
			var s float64
			for j := 0; j < n; j++ {
				s += math.Exp(float64(t.data[(o*n+j)*inner+i] - m))
			}
			out.data[o*inner+i] = m + float32(math.Log(s))
		}
	}
	return out
}

// Softmax normalizes along the given dimension into a probability simplex.
func Softmax(t *Tensor[float32], dim int) *Tensor[float32] {
	return Exp(LogSoftmax(t, dim))
}

// LogSoftmax computes log(softmax(t)) along the given dimension.
func LogSoftmax(t *Tensor[float32], dim int) *Tensor[float32] {
	lse := LogSumExp(t, dim, true)
	return Sub(t, lse)
}
