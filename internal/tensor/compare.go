package tensor

// Greater returns a > b element-wise with broadcasting.
func Greater[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x > y })
}

// Less returns a < b element-wise with broadcasting.
func Less[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x < y })
}

// GreaterEqual returns a >= b element-wise with broadcasting.
func GreaterEqual[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x >= y })
}

// LessEqual returns a <= b element-wise with broadcasting.
func LessEqual[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x <= y })
}

// Equal returns a == b element-wise with broadcasting.
func Equal[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x == y })
}

// NotEqual returns a != b element-wise with broadcasting.
func NotEqual[T Number](a, b *Tensor[T]) *Tensor[bool] {
	return zip(a, b, func(x, y T) bool { return x != y })
}

// EqualScalar returns t == s element-wise.
func EqualScalar[T Number](t *Tensor[T], s T) *Tensor[bool] {
	return unary(t, func(x T) bool { return x == s })
}

// NotEqualScalar returns t != s element-wise.
func NotEqualScalar[T Number](t *Tensor[T], s T) *Tensor[bool] {
	return unary(t, func(x T) bool { return x != s })
}

// GreaterScalar returns t > s element-wise.
func GreaterScalar[T Number](t *Tensor[T], s T) *Tensor[bool] {
	return unary(t, func(x T) bool { return x > s })
}

// And returns the element-wise logical AND with broadcasting.
func And(a, b *Tensor[bool]) *Tensor[bool] {
	return zip(a, b, func(x, y bool) bool { return x && y })
}

// Or returns the element-wise logical OR with broadcasting.
func Or(a, b *Tensor[bool]) *Tensor[bool] {
	return zip(a, b, func(x, y bool) bool { return x || y })
}

// Not returns the element-wise logical NOT.
func Not(t *Tensor[bool]) *Tensor[bool] {
	return unary(t, func(x bool) bool { return !x })
}

// Where selects elements from x where cond is true and from y otherwise.
// All three tensors broadcast to a common shape.
func Where[T DType](cond *Tensor[bool], x, y *Tensor[T]) *Tensor[T] {
	common, err := BroadcastShapes(cond.shape, x.shape)
	if err != nil {
		panic("Where: " + err.Error())
	}
	common, err = BroadcastShapes(common, y.shape)
	if err != nil {
		panic("Where: " + err.Error())
	}
	c := expandTo(cond, common)
	xe := expandTo(x, common)
	ye := expandTo(y, common)

	out := New[T](common)
	for i := range out.data {
		if c.data[i] {
			out.data[i] = xe.data[i]
		} else {
			out.data[i] = ye.data[i]
		}
	}
	return out
}
