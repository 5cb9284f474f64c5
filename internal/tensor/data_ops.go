package tensor

import (
	"math"

	"github.com/born-ml/nodegraph/internal/diag"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Plus returns d + other.
func (d Data) Plus(other Data) Data {
	return d.Apply("plus", other, func(a, b float32) float32 { return a + b })
}

// Minus returns d - other.
func (d Data) Minus(other Data) Data {
	return d.Apply("minus", other, func(a, b float32) float32 { return a - b })
}

// Times returns the elementwise product d * other.
func (d Data) Times(other Data) Data {
	return d.Apply("times", other, func(a, b float32) float32 { return a * b })
}

// Divide returns the elementwise quotient d / other.
func (d Data) Divide(other Data) Data {
	return d.Apply("divide", other, func(a, b float32) float32 { return a / b })
}

// Apply combines d and other elementwise with fn.
//
// Broadcasting rules:
//   - a scalar combines with every element of the other operand
//   - vector/vector and matrix/matrix require identical shapes
//
// Any other pairing, or a None operand, yields None.
func (d Data) Apply(op string, other Data, fn func(a, b float32) float32) Data {
	if d.IsNone() || other.IsNone() {
		diag.Report(op, "none operand (%s, %s)", d.shape, other.shape)
		return None()
	}

	switch {
	case d.shape == other.shape:
		out := make([]float32, len(d.values))
		for i, v := range d.values {
			out[i] = fn(v, other.values[i])
		}
		return Data{shape: d.shape, values: out}

	case d.shape.Kind == KindScalar:
		s := d.values[0]
		out := make([]float32, len(other.values))
		for i, v := range other.values {
			out[i] = fn(s, v)
		}
		return Data{shape: other.shape, values: out}

	case other.shape.Kind == KindScalar:
		s := other.values[0]
		out := make([]float32, len(d.values))
		for i, v := range d.values {
			out[i] = fn(v, s)
		}
		return Data{shape: d.shape, values: out}

	default:
		diag.Report(op, "shape mismatch %s vs %s", d.shape, other.shape)
		return None()
	}
}

// Map applies fn to every element.
func (d Data) Map(fn func(float32) float32) Data {
	if d.IsNone() {
		return None()
	}
	out := make([]float32, len(d.values))
	for i, v := range d.values {
		out[i] = fn(v)
	}
	return Data{shape: d.shape, values: out}
}

// Scale multiplies every element by c.
func (d Data) Scale(c float32) Data {
	return d.Map(func(v float32) float32 { return v * c })
}

// Sqrt returns the elementwise square root.
func (d Data) Sqrt() Data {
	return d.Map(func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// Abs returns the elementwise absolute value.
func (d Data) Abs() Data {
	return d.Map(func(v float32) float32 { return float32(math.Abs(float64(v))) })
}

// Square returns the elementwise square.
func (d Data) Square() Data {
	return d.Map(func(v float32) float32 { return v * v })
}

// Sign returns -1, 0, or 1 per element.
func (d Data) Sign() Data {
	return d.Map(func(v float32) float32 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	})
}

// ElementSum reduces every element to a scalar sum.
func (d Data) ElementSum() Data {
	if d.IsNone() {
		diag.Report("element_sum", "none operand")
		return None()
	}
	return Scalar(float32(floats.Sum(toFloat64(d.values))))
}

// Transpose swaps the rows and columns of a matrix.
// Scalars and vectors are returned unchanged.
func (d Data) Transpose() Data {
	switch d.shape.Kind {
	case KindNone:
		diag.Report("transpose", "none operand")
		return None()
	case KindMatrix:
		t := mat.DenseCopyOf(d.dense().T())
		return fromDense(t, KindMatrix)
	default:
		return d.Clone()
	}
}

// MatMul returns the linear-algebra product of d and other.
//
// Rules:
//   - scalar with anything scales the other operand
//   - vector ⊗ vector is the outer product (matrix)
//   - vector · matrix treats the vector as a row when its length equals the
//     matrix rows, otherwise as a column when it equals the matrix columns
//   - matrix · vector treats the vector as a column when its length equals the
//     matrix columns, otherwise as a row when it equals the matrix rows
//   - matrix · matrix requires matching inner dimensions
func (d Data) MatMul(other Data) Data {
	if d.IsNone() || other.IsNone() {
		diag.Report("matmul", "none operand (%s, %s)", d.shape, other.shape)
		return None()
	}

	a, b := d.shape, other.shape
	switch {
	case a.Kind == KindScalar || b.Kind == KindScalar:
		return d.Times(other)

	case a.Kind == KindVector && b.Kind == KindVector:
		// Column a (n x 1) times row b (1 x m).
		col := mat.NewDense(a.Cols, 1, toFloat64(d.values))
		return product(col, other.dense(), KindMatrix)

	case a.Kind == KindVector && b.Kind == KindMatrix:
		switch a.Cols {
		case b.Rows:
			return product(d.dense(), other.dense(), KindVector)
		case b.Cols:
			return product(other.dense(), d.column(), KindVector)
		}

	case a.Kind == KindMatrix && b.Kind == KindVector:
		switch b.Cols {
		case a.Cols:
			return product(d.dense(), other.column(), KindVector)
		case a.Rows:
			return product(other.dense(), d.dense(), KindVector)
		}

	case a.Kind == KindMatrix && b.Kind == KindMatrix:
		if a.Cols == b.Rows {
			return product(d.dense(), other.dense(), KindMatrix)
		}
	}

	diag.Report("matmul", "incompatible shapes %s and %s", a, b)
	return None()
}

// PlusAssign adds other into d in place.
// other must have d's shape or be a scalar; otherwise d becomes None.
func (d *Data) PlusAssign(other Data) {
	d.assign("plus_assign", other, func(a, b float32) float32 { return a + b })
}

// MinusAssign subtracts other from d in place.
func (d *Data) MinusAssign(other Data) {
	d.assign("minus_assign", other, func(a, b float32) float32 { return a - b })
}

// TimesAssign multiplies d by other elementwise in place.
func (d *Data) TimesAssign(other Data) {
	d.assign("times_assign", other, func(a, b float32) float32 { return a * b })
}

// ScaleAssign multiplies every element of d by c in place.
func (d *Data) ScaleAssign(c float32) {
	for i := range d.values {
		d.values[i] *= c
	}
}

func (d *Data) assign(op string, other Data, fn func(a, b float32) float32) {
	if d.IsNone() || other.IsNone() {
		diag.Report(op, "none operand (%s, %s)", d.shape, other.shape)
		*d = None()
		return
	}
	switch {
	case d.shape == other.shape:
		for i := range d.values {
			d.values[i] = fn(d.values[i], other.values[i])
		}
	case other.shape.Kind == KindScalar:
		s := other.values[0]
		for i := range d.values {
			d.values[i] = fn(d.values[i], s)
		}
	default:
		diag.Report(op, "shape mismatch %s vs %s", d.shape, other.shape)
		*d = None()
	}
}

// dense views d as a gonum matrix. Vectors become a single row.
func (d Data) dense() *mat.Dense {
	return mat.NewDense(d.shape.Rows, d.shape.Cols, toFloat64(d.values))
}

// column views a vector as an n x 1 matrix.
func (d Data) column() *mat.Dense {
	return mat.NewDense(d.shape.Cols, 1, toFloat64(d.values))
}

func product(a, b mat.Matrix, kind Kind) Data {
	var out mat.Dense
	out.Mul(a, b)
	return fromDense(&out, kind)
}

func fromDense(m *mat.Dense, kind Kind) Data {
	r, c := m.Dims()
	raw := m.RawMatrix()
	values := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+c] {
			values = append(values, float32(v))
		}
	}
	if kind == KindVector {
		return Data{shape: VectorShape(r * c), values: values}
	}
	return Data{shape: MatrixShape(r, c), values: values}
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

// Float64s returns the elements widened to float64.
func (d Data) Float64s() []float64 {
	return toFloat64(d.values)
}

// FromFloat64s creates a value of the given shape by narrowing values to float32.
func FromFloat64s(shape Shape, values []float64) Data {
	return FromSlice(shape, fromFloat64(values))
}
