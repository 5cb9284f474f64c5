package tensor

import (
	"math"
	"os"
	"testing"

	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

// compatiblePairs returns operand pairs accepted by elementwise operations.
func compatiblePairs() map[string][2]Data {
	return map[string][2]Data{
		"scalar/scalar": {Scalar(1.5), Scalar(-0.25)},
		"scalar/vector": {Scalar(2), Vector([]float32{1, -2, 3})},
		"vector/scalar": {Vector([]float32{0.5, 4}), Scalar(3)},
		"vector/vector": {Vector([]float32{1, 2, 3}), Vector([]float32{-4, 0.5, 6})},
		"matrix/matrix": {
			Matrix([][]float32{{1, 2}, {3, 4}}),
			Matrix([][]float32{{-1, 0.5}, {2, 8}}),
		},
		"matrix/scalar": {Matrix([][]float32{{1, 2, 3}}), Scalar(-7)},
	}
}

func TestData_PlusMinusRoundTrip(t *testing.T) {
	for name, pair := range compatiblePairs() {
		t.Run(name, func(t *testing.T) {
			a, b := pair[0], pair[1]
			got := a.Plus(b).Minus(b)
			if a.Kind() == KindScalar && b.Kind() != KindScalar {
				// The scalar was broadcast; every element recovers it.
				for _, v := range got.Values() {
					assert.InDelta(t, a.values[0], v, 1e-6)
				}
				return
			}
			assert.True(t, got.ApproxEqual(a, 1e-6), "got %s, want %s", got, a)
		})
	}
}

func TestData_SqrtOfSquareIsAbs(t *testing.T) {
	values := []Data{
		Scalar(-3),
		Vector([]float32{-1.5, 0, 2.25}),
		Matrix([][]float32{{-4, 9}, {0.5, -0.01}}),
	}
	for _, a := range values {
		got := a.Times(a).Sqrt()
		assert.True(t, got.ApproxEqual(a.Abs(), 1e-5), "sqrt(%s*%s) = %s", a, a, got)
	}
}

func TestData_NoneIsAbsorbing(t *testing.T) {
	operands := []Data{None(), Scalar(1), Vector([]float32{1, 2}), Matrix([][]float32{{1}})}
	binary := map[string]func(a, b Data) Data{
		"plus":   Data.Plus,
		"minus":  Data.Minus,
		"times":  Data.Times,
		"divide": Data.Divide,
		"matmul": Data.MatMul,
	}
	for name, op := range binary {
		for _, other := range operands {
			assert.NotPanics(t, func() {
				assert.True(t, op(None(), other).IsNone(), "%s(None, %s)", name, other)
				assert.True(t, op(other, None()).IsNone(), "%s(%s, None)", name, other)
			})
		}
	}
	assert.True(t, None().ElementSum().IsNone())
	assert.True(t, None().Transpose().IsNone())
	assert.True(t, None().Sqrt().IsNone())
}

func TestData_ShapeMismatchYieldsNone(t *testing.T) {
	v2 := Vector([]float32{1, 2})
	v3 := Vector([]float32{1, 2, 3})
	m := Matrix([][]float32{{1, 2}, {3, 4}})

	assert.True(t, v2.Plus(v3).IsNone())
	assert.True(t, v2.Times(m).IsNone())
	assert.True(t, m.Minus(v2).IsNone())
}

func TestData_Constructors(t *testing.T) {
	assert.True(t, Vector(nil).IsNone())
	assert.True(t, Matrix([][]float32{{1, 2}, {3}}).IsNone(), "ragged")
	assert.True(t, FromSlice(MatrixShape(2, 2), []float32{1, 2, 3}).IsNone())

	m := FromSlice(MatrixShape(2, 3), []float32{1, 2, 3, 4, 5, 6})
	require.False(t, m.IsNone())
	assert.Equal(t, float32(6), m.At(1, 2))
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, m.Rows())

	s, ok := Scalar(2.5).ScalarValue()
	assert.True(t, ok)
	assert.Equal(t, float32(2.5), s)
	_, ok = m.ScalarValue()
	assert.False(t, ok)

	src := []float32{1, 2}
	v := Vector(src)
	src[0] = 99
	assert.Equal(t, float32(1), v.At(0, 0), "vector must copy its input")
}

func TestData_MatMul(t *testing.T) {
	tests := []struct {
		name string
		a, b Data
		want Data
	}{
		{
			name: "outer product",
			a:    Vector([]float32{1, 2}),
			b:    Vector([]float32{3, 4, 5}),
			want: Matrix([][]float32{{3, 4, 5}, {6, 8, 10}}),
		},
		{
			name: "row vector times matrix",
			a:    Vector([]float32{1, 2}),
			b:    Matrix([][]float32{{1, 2, 3}, {4, 5, 6}}),
			want: Vector([]float32{9, 12, 15}),
		},
		{
			name: "vector auto-oriented as column",
			a:    Vector([]float32{0.7, 0.1, 1.0}),
			b:    Matrix([][]float32{{1, 2, 3}, {3, 2, 1}}),
			want: Vector([]float32{3.9, 3.3}),
		},
		{
			name: "matrix times column vector",
			a:    Matrix([][]float32{{1, 2, 3}, {3, 2, 1}}),
			b:    Vector([]float32{0.7, 0.1, 1.0}),
			want: Vector([]float32{3.9, 3.3}),
		},
		{
			name: "matrix times vector auto-oriented as row",
			a:    Matrix([][]float32{{1, 2, 3}, {4, 5, 6}}),
			b:    Vector([]float32{1, 2}),
			want: Vector([]float32{9, 12, 15}),
		},
		{
			name: "matrix times matrix",
			a:    Matrix([][]float32{{1, 2}, {3, 4}}),
			b:    Matrix([][]float32{{5, 6}, {7, 8}}),
			want: Matrix([][]float32{{19, 22}, {43, 50}}),
		},
		{
			name: "scalar scales",
			a:    Scalar(2),
			b:    Matrix([][]float32{{1, -1}}),
			want: Matrix([][]float32{{2, -2}}),
		},
		{
			name: "inner dimension mismatch",
			a:    Matrix([][]float32{{1, 2, 3}}),
			b:    Matrix([][]float32{{1, 2}}),
			want: None(),
		},
		{
			name: "vector length matches neither dimension",
			a:    Vector([]float32{1, 2, 3, 4}),
			b:    Matrix([][]float32{{1, 2}, {3, 4}}),
			want: None(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.MatMul(tt.b)
			assert.True(t, got.ApproxEqual(tt.want, 1e-5), "got %s, want %s", got, tt.want)
		})
	}
}

func TestData_TransposeAndSum(t *testing.T) {
	m := Matrix([][]float32{{1, 2, 3}, {4, 5, 6}})
	mt := m.Transpose()
	assert.Equal(t, MatrixShape(3, 2), mt.Shape())
	assert.Equal(t, [][]float32{{1, 4}, {2, 5}, {3, 6}}, mt.Rows())
	assert.True(t, mt.Transpose().ApproxEqual(m, 0))

	v := Vector([]float32{1, 2})
	assert.True(t, v.Transpose().ApproxEqual(v, 0))

	sum, ok := m.ElementSum().ScalarValue()
	require.True(t, ok)
	assert.Equal(t, float32(21), sum)
}

func TestData_AssignVariants(t *testing.T) {
	d := Vector([]float32{1, 2, 3})
	d.PlusAssign(Vector([]float32{1, 1, 1}))
	assert.Equal(t, []float32{2, 3, 4}, d.Values())

	d.MinusAssign(Scalar(1))
	assert.Equal(t, []float32{1, 2, 3}, d.Values())

	d.TimesAssign(Vector([]float32{2, 0, -1}))
	assert.Equal(t, []float32{2, 0, -3}, d.Values())

	d.ScaleAssign(0.5)
	assert.Equal(t, []float32{1, 0, -1.5}, d.Values())

	d.PlusAssign(Vector([]float32{1}))
	assert.True(t, d.IsNone(), "mismatched assign degrades the receiver")
}

func TestData_IsFinite(t *testing.T) {
	assert.True(t, Vector([]float32{1, -2}).IsFinite())
	assert.False(t, Vector([]float32{1, float32(math.Inf(1))}).IsFinite())
	assert.False(t, Scalar(float32(math.NaN())).IsFinite())
	assert.False(t, None().IsFinite())
}

func TestData_Sign(t *testing.T) {
	got := Vector([]float32{-2, 0, 3}).Sign()
	assert.Equal(t, []float32{-1, 0, 1}, got.Values())
}

func TestShape_Validate(t *testing.T) {
	assert.NoError(t, VectorShape(3).Validate())
	assert.NoError(t, MatrixShape(2, 2).Validate())
	assert.Error(t, VectorShape(0).Validate())
	assert.Error(t, MatrixShape(0, 3).Validate())
	assert.Equal(t, "matrix[2x3]", MatrixShape(2, 3).String())
	assert.Equal(t, 0, Shape{}.NumElements())
}
