package tensor

import "fmt"

// Cat concatenates tensors along the given dimension.
// All tensors must share every other dimension.
func Cat[T DType](tensors []*Tensor[T], dim int) *Tensor[T] {
	if len(tensors) == 0 {
		panic("Cat: no tensors to concatenate")
	}
	rank := len(tensors[0].shape)
	d := normDim(dim, rank)

	outShape := tensors[0].shape.Clone()
	outShape[d] = 0
	for _, t := range tensors {
		if len(t.shape) != rank {
			panic(fmt.Sprintf("Cat: rank mismatch: %v vs %v", tensors[0].shape, t.shape))
		}
		for i := 0; i < rank; i++ {
			if i != d && t.shape[i] != tensors[0].shape[i] {
				panic(fmt.Sprintf("Cat: shape mismatch along dimension %d: %v vs %v", i, tensors[0].shape, t.shape))
			}
		}
		outShape[d] += t.shape[d]
	}

	out := New[T](outShape)
	outer, _, inner := dimSpans(outShape, d)
	catExtent := outShape[d]

	offset := 0
	for _, t := range tensors {
		n := t.shape[d]
		for o := 0; o < outer; o++ {
			src := o * n * inner
			dst := (o*catExtent + offset) * inner
			copy(out.data[dst:dst+n*inner], t.data[src:src+n*inner])
		}
		offset += n
	}
	return out
}

// Narrow returns a copy of the slice [start, start+length) of t along dim.
func Narrow[T DType](t *Tensor[T], dim, start, length int) *Tensor[T] {
	d := normDim(dim, len(t.shape))
	if start < 0 || length < 0 || start+length > t.shape[d] {
		panic(fmt.Sprintf("Narrow: range [%d, %d) out of bounds for dimension %d (size %d)",
			start, start+length, d, t.shape[d]))
	}
	outShape := t.shape.Clone()
	outShape[d] = length

	out := New[T](outShape)
	outer, n, inner := dimSpans(t.shape, d)
	for o := 0; o < outer; o++ {
		src := (o*n + start) * inner
		dst := o * length * inner
		copy(out.data[dst:dst+length*inner], t.data[src:src+length*inner])
	}
	return out
}

// Select returns the sub-tensor of t at the given index along dim, dropping
// that dimension.
func Select[T DType](t *Tensor[T], dim, index int) *Tensor[T] {
	d := normDim(dim, len(t.shape))
	narrow := Narrow(t, d, index, 1)
	return squeezeDim(narrow, d)
}

func squeezeDim[T DType](t *Tensor[T], dim int) *Tensor[T] {
	outShape := make(Shape, 0, len(t.shape)-1)
	for i, s := range t.shape {
		if i == dim {
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = Shape{1}
	}
	out := New[T](outShape)
	copy(out.data, t.data)
	return out
}

// Unsqueeze inserts a size-1 dimension at the given position.
func Unsqueeze[T DType](t *Tensor[T], dim int) *Tensor[T] {
	rank := len(t.shape)
	d := dim
	if d < 0 {
		d += rank + 1
	}
	if d < 0 || d > rank {
		panic(fmt.Sprintf("Unsqueeze: dimension %d out of range for rank %d", dim, rank))
	}
	outShape := make(Shape, 0, rank+1)
	outShape = append(outShape, t.shape[:d]...)
	outShape = append(outShape, 1)
	outShape = append(outShape, t.shape[d:]...)

	out := New[T](outShape)
	copy(out.data, t.data)
	return out
}

// Squeeze removes a size-1 dimension at the given position.
func Squeeze[T DType](t *Tensor[T], dim int) *Tensor[T] {
	d := normDim(dim, len(t.shape))
	if t.shape[d] != 1 {
		panic(fmt.Sprintf("Squeeze: dimension %d has size %d, not 1", d, t.shape[d]))
	}
	return squeezeDim(t, d)
}

// Gather selects elements of t along dim according to index. index must have
// the same rank as t and match t's shape on every other dimension; the result
// has index's shape.
func Gather[T DType](t *Tensor[T], dim int, index *Tensor[int64]) *Tensor[T] {
	rank := len(t.shape)
	d := normDim(dim, rank)
	if len(index.shape) != rank {
		panic(fmt.Sprintf("Gather: index rank %d does not match tensor rank %d", len(index.shape), rank))
	}
	for i := 0; i < rank; i++ {
		if i != d && index.shape[i] != t.shape[i] {
			panic(fmt.Sprintf("Gather: index shape %v incompatible with tensor shape %v along dimension %d",
				index.shape, t.shape, i))
		}
	}

	out := New[T](index.shape)
	outer, nIdx, inner := dimSpans(index.shape, d)
	nSrc := t.shape[d]
	for o := 0; o < outer; o++ {
		for j := 0; j < nIdx; j++ {
			for i := 0; i < inner; i++ {
				pos := (o*nIdx+j)*inner + i
				k := index.data[pos]
				if k < 0 || k >= int64(nSrc) {
					panic(fmt.Sprintf("Gather: index %d out of range for dimension %d (size %d)", k, d, nSrc))
				}
				out.data[pos] = t.data[(o*nSrc+int(k))*inner+i]
			}
		}
	}
	return out
}

// ScatterValue returns a copy of t with value written at the positions given
// by index along dim: out[..., index[..., j], ...] = value. index must have
// the same rank as t and match t's shape on every other dimension.
func ScatterValue[T DType](t *Tensor[T], dim int, index *Tensor[int64], value T) *Tensor[T] {
	rank := len(t.shape)
	d := normDim(dim, rank)
	if len(index.shape) != rank {
		panic(fmt.Sprintf("ScatterValue: index rank %d does not match tensor rank %d", len(index.shape), rank))
	}
	for i := 0; i < rank; i++ {
		if i != d && index.shape[i] != t.shape[i] {
			panic(fmt.Sprintf("ScatterValue: index shape %v incompatible with tensor shape %v along dimension %d",
				index.shape, t.shape, i))
		}
	}

	out := t.Clone()
	outer, nIdx, inner := dimSpans(index.shape, d)
	nDst := t.shape[d]
	for o := 0; o < outer; o++ {
		for j := 0; j < nIdx; j++ {
			for i := 0; i < inner; i++ {
				k := index.data[(o*nIdx+j)*inner+i]
				if k < 0 || k >= int64(nDst) {
					panic(fmt.Sprintf("ScatterValue: index %d out of range for dimension %d (size %d)", k, d, nDst))
				}
				out.data[(o*nDst+int(k))*inner+i] = value
			}
		}
	}
	return out
}
