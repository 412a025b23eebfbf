package tensor

import (
	"math"
	"testing"
)

// Test helpers

func assertEqualFloat32(t *testing.T, expected, actual float32, msg string) {
	t.Helper()
	if math.Abs(float64(expected-actual)) > 1e-5 {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{3}, 3},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Fatalf("strides = %v, want %v", strides, want)
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b, want Shape
		wantErr    bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{1, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{5}, Shape{2, 3, 5}, Shape{2, 3, 5}, false},
		{Shape{3, 4}, Shape{3, 5}, nil, true},
	}
	for _, tt := range tests {
		got, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v): expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
			continue
		}
		assertEqualShape(t, tt.want, got, "broadcast shape")
	}
}

func TestAtSet(t *testing.T) {
	m := Zeros[float32](Shape{2, 3})
	m.Set(7, 1, 2)
	assertEqualFloat32(t, 7, m.At(1, 2), "At(1,2)")
	assertEqualFloat32(t, 0, m.At(0, 2), "At(0,2)")
}

func TestAddBroadcast(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := MustFromSlice([]float32{10, 20, 30}, Shape{3})
	c := Add(a, b)
	assertEqualShape(t, Shape{2, 3}, c.Shape(), "Add result shape")
	assertEqualFloat32(t, 11, c.At(0, 0), "c[0,0]")
	assertEqualFloat32(t, 36, c.At(1, 2), "c[1,2]")
}

func TestWhere(t *testing.T) {
	cond := MustFromSlice([]bool{true, false, true}, Shape{3})
	x := MustFromSlice([]float32{1, 2, 3}, Shape{3})
	y := MustFromSlice([]float32{-1, -2, -3}, Shape{3})
	z := Where(cond, x, y)
	want := []float32{1, -2, 3}
	for i, w := range want {
		assertEqualFloat32(t, w, z.Data()[i], "Where element")
	}
}

func TestSumDim(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	rows := SumDim(a, 1, false)
	assertEqualShape(t, Shape{2}, rows.Shape(), "SumDim(1) shape")
	assertEqualFloat32(t, 6, rows.At(0), "row 0 sum")
	assertEqualFloat32(t, 15, rows.At(1), "row 1 sum")

	cols := SumDim(a, 0, false)
	assertEqualShape(t, Shape{3}, cols.Shape(), "SumDim(0) shape")
	assertEqualFloat32(t, 5, cols.At(0), "col 0 sum")

	keep := SumDim(a, -1, true)
	assertEqualShape(t, Shape{2, 1}, keep.Shape(), "SumDim keepDim shape")
}

func TestAny(t *testing.T) {
	m := MustFromSlice([]bool{false, true, false, false, false, false}, Shape{2, 3})
	got := Any(m, -1, false)
	if !got.At(0) {
		t.Error("row 0 should reduce to true")
	}
	if got.At(1) {
		t.Error("row 1 should reduce to false")
	}
}

func TestLogSumExpMatchesDirect(t *testing.T) {
	a := MustFromSlice([]float32{0.5, -1, 2, 30, 31, 29}, Shape{2, 3})
	got := LogSumExp(a, 1, false)
	for r := 0; r < 2; r++ {
		var s float64
		for c := 0; c < 3; c++ {
			s += math.Exp(float64(a.At(r, c)))
		}
		assertEqualFloat32(t, float32(math.Log(s)), got.At(r), "logsumexp row")
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 100, 100, 100}, Shape{2, 3})
	probs := Softmax(a, -1)
	sums := SumDim(probs, -1, false)
	assertEqualFloat32(t, 1, sums.At(0), "softmax row 0")
	assertEqualFloat32(t, 1, sums.At(1), "softmax row 1")

	// Uniform logits give uniform probabilities.
	assertEqualFloat32(t, 1.0/3.0, probs.At(1, 0), "uniform softmax")
}

func TestCat(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
	b := MustFromSlice([]float32{5, 6}, Shape{1, 2})
	c := Cat([]*Tensor[float32]{a, b}, 0)
	assertEqualShape(t, Shape{3, 2}, c.Shape(), "Cat dim 0 shape")
	assertEqualFloat32(t, 5, c.At(2, 0), "appended row")

	d := Cat([]*Tensor[float32]{a, a}, 1)
	assertEqualShape(t, Shape{2, 4}, d.Shape(), "Cat dim 1 shape")
	assertEqualFloat32(t, 1, d.At(0, 2), "interleaved column")
}

func TestNarrowSelect(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	n := Narrow(a, 1, 1, 2)
	assertEqualShape(t, Shape{2, 2}, n.Shape(), "Narrow shape")
	assertEqualFloat32(t, 2, n.At(0, 0), "narrow[0,0]")
	assertEqualFloat32(t, 6, n.At(1, 1), "narrow[1,1]")

	s := Select(a, 0, 1)
	assertEqualShape(t, Shape{3}, s.Shape(), "Select shape")
	assertEqualFloat32(t, 4, s.At(0), "select[0]")
}

func TestGather(t *testing.T) {
	a := MustFromSlice([]float32{10, 11, 12, 20, 21, 22}, Shape{2, 3})
	idx := MustFromSlice([]int64{2, 0, 1, 1}, Shape{2, 2})
	g := Gather(a, 1, idx)
	assertEqualShape(t, Shape{2, 2}, g.Shape(), "Gather shape")
	want := []float32{12, 10, 21, 21}
	for i, w := range want {
		assertEqualFloat32(t, w, g.Data()[i], "gathered element")
	}
}

func TestScatterValue(t *testing.T) {
	z := Zeros[float32](Shape{2, 4})
	idx := MustFromSlice([]int64{1, 3, 0, 0}, Shape{2, 2})
	s := ScatterValue(z, 1, idx, 1)
	assertEqualFloat32(t, 1, s.At(0, 1), "scattered [0,1]")
	assertEqualFloat32(t, 1, s.At(0, 3), "scattered [0,3]")
	assertEqualFloat32(t, 1, s.At(1, 0), "scattered [1,0]")
	assertEqualFloat32(t, 0, s.At(1, 2), "untouched [1,2]")
	assertEqualFloat32(t, 0, z.At(0, 1), "source unmodified")
}

func TestMatMul(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := MustFromSlice([]float32{7, 8, 9, 10, 11, 12}, Shape{3, 2})
	c := MatMul(a, b)
	assertEqualShape(t, Shape{2, 2}, c.Shape(), "MatMul shape")
	assertEqualFloat32(t, 58, c.At(0, 0), "c[0,0]")
	assertEqualFloat32(t, 64, c.At(0, 1), "c[0,1]")
	assertEqualFloat32(t, 139, c.At(1, 0), "c[1,0]")
	assertEqualFloat32(t, 154, c.At(1, 1), "c[1,1]")
}

func TestAllFinite(t *testing.T) {
	ok := MustFromSlice([]float32{0, -1, 2}, Shape{3})
	if !AllFinite(ok) {
		t.Error("finite tensor reported non-finite")
	}
	bad := MustFromSlice([]float32{0, float32(math.NaN()), 2}, Shape{3})
	if AllFinite(bad) {
		t.Error("NaN tensor reported finite")
	}
	inf := MustFromSlice([]float32{float32(math.Inf(1))}, Shape{1})
	if AllFinite(inf) {
		t.Error("Inf tensor reported finite")
	}
}

func TestCasts(t *testing.T) {
	b := MustFromSlice([]bool{true, false, true}, Shape{3})
	f := ToFloat32(b)
	assertEqualFloat32(t, 1, f.At(0), "bool to float")
	assertEqualFloat32(t, 0, f.At(1), "bool to float")

	i := MustFromSlice([]int64{3, -2}, Shape{2})
	fi := ToFloat32(i)
	assertEqualFloat32(t, -2, fi.At(1), "int to float")

	back := ToInt64(fi)
	if back.At(0) != 3 {
		t.Errorf("roundtrip int cast: got %d", back.At(0))
	}
}

func TestExpandStridesZeroCopySemantics(t *testing.T) {
	row := MustFromSlice([]float32{1, 2, 3}, Shape{1, 3})
	e := Expand(row, Shape{4, 3})
	assertEqualShape(t, Shape{4, 3}, e.Shape(), "Expand shape")
	for r := 0; r < 4; r++ {
		assertEqualFloat32(t, 2, e.At(r, 1), "expanded row")
	}
}
