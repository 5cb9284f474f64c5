// Package tensor implements the value types of the graph engine.
//
// Data is a rank-0/1/2 float32 tensor with an explicit None sentinel for
// invalid results. Container lifts Data into the three roles a value can play
// in a training step (one example, a batch of examples, or a parameter shared
// by every example) and broadcasts operations across them.
//
// Invalid combinations never panic. They return None (or Empty for
// containers) and report through the diag package, so a malformed graph runs
// to completion and produces a visibly wrong result.
package tensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/nodegraph/internal/diag"
)

// Data is a scalar, vector, or matrix of float32 values, or None.
//
// Values are stored row-major. Data has value semantics for every method
// except the *Assign family, which mutates the receiver in place.
type Data struct {
	shape  Shape
	values []float32
}

// None returns the invalid-result sentinel.
func None() Data {
	return Data{}
}

// Scalar creates a scalar value.
func Scalar(v float32) Data {
	return Data{shape: ScalarShape(), values: []float32{v}}
}

// Vector creates a vector from a copy of values.
// An empty slice yields None.
func Vector(values []float32) Data {
	if len(values) == 0 {
		diag.Report("vector", "empty vector")
		return None()
	}
	return Data{shape: VectorShape(len(values)), values: append([]float32(nil), values...)}
}

// Matrix creates a matrix from rows. Ragged or empty input yields None.
func Matrix(rows [][]float32) Data {
	if len(rows) == 0 || len(rows[0]) == 0 {
		diag.Report("matrix", "empty matrix")
		return None()
	}
	cols := len(rows[0])
	values := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			diag.Report("matrix", "ragged row %d: %d elements, want %d", i, len(row), cols)
			return None()
		}
		values = append(values, row...)
	}
	return Data{shape: MatrixShape(len(rows), cols), values: values}
}

// FromSlice creates a value of the given shape from a copy of values.
func FromSlice(shape Shape, values []float32) Data {
	if err := shape.Validate(); err != nil || shape.Kind == KindNone {
		diag.Report("from_slice", "bad shape %s", shape)
		return None()
	}
	if len(values) != shape.NumElements() {
		diag.Report("from_slice", "%d values for shape %s", len(values), shape)
		return None()
	}
	return Data{shape: shape, values: append([]float32(nil), values...)}
}

// Full creates a value of the given shape with every element set to v.
func Full(shape Shape, v float32) Data {
	if err := shape.Validate(); err != nil || shape.Kind == KindNone {
		diag.Report("full", "bad shape %s", shape)
		return None()
	}
	values := make([]float32, shape.NumElements())
	for i := range values {
		values[i] = v
	}
	return Data{shape: shape, values: values}
}

// Zeros creates a zero-filled value of the given shape.
func Zeros(shape Shape) Data {
	return Full(shape, 0)
}

// Kind returns the variant tag.
func (d Data) Kind() Kind {
	return d.shape.Kind
}

// Shape returns the dimensions.
func (d Data) Shape() Shape {
	return d.shape
}

// IsNone reports whether d is the invalid-result sentinel.
func (d Data) IsNone() bool {
	return d.shape.Kind == KindNone
}

// Len returns the number of elements.
func (d Data) Len() int {
	return len(d.values)
}

// Values returns a copy of the elements in row-major order.
func (d Data) Values() []float32 {
	return append([]float32(nil), d.values...)
}

// At returns the element at (row, col). Vectors and scalars use row 0.
func (d Data) At(row, col int) float32 {
	return d.values[row*d.shape.Cols+col]
}

// ScalarValue returns the value of a scalar and false for any other kind.
func (d Data) ScalarValue() (float32, bool) {
	if d.shape.Kind != KindScalar {
		return 0, false
	}
	return d.values[0], true
}

// Rows returns the rows of a matrix (a single row for vectors and scalars).
func (d Data) Rows() [][]float32 {
	if d.IsNone() {
		return nil
	}
	rows := make([][]float32, d.shape.Rows)
	for r := range rows {
		rows[r] = append([]float32(nil), d.values[r*d.shape.Cols:(r+1)*d.shape.Cols]...)
	}
	return rows
}

// Clone returns a deep copy.
func (d Data) Clone() Data {
	if d.IsNone() {
		return None()
	}
	return Data{shape: d.shape, values: append([]float32(nil), d.values...)}
}

// ZerosLike returns zeros with the shape of d. None stays None.
func (d Data) ZerosLike() Data {
	if d.IsNone() {
		return None()
	}
	return Zeros(d.shape)
}

// OnesLike returns ones with the shape of d. None stays None.
func (d Data) OnesLike() Data {
	if d.IsNone() {
		return None()
	}
	return Full(d.shape, 1)
}

// IsFinite reports whether every element is neither NaN nor infinite.
// None is not finite.
func (d Data) IsFinite() bool {
	if d.IsNone() {
		return false
	}
	for _, v := range d.values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ApproxEqual reports whether d and other have the same shape and every pair
// of elements differs by at most tol. Two None values are equal.
func (d Data) ApproxEqual(other Data, tol float32) bool {
	if d.shape != other.shape {
		return false
	}
	for i, v := range d.values {
		diff := v - other.values[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > tol || diff != diff {
			return false
		}
	}
	return true
}

// String formats the value for diagnostics.
func (d Data) String() string {
	switch d.shape.Kind {
	case KindScalar:
		return fmt.Sprintf("%g", d.values[0])
	case KindVector:
		return fmt.Sprintf("%v", d.values)
	case KindMatrix:
		var sb strings.Builder
		sb.WriteByte('[')
		for r, row := range d.Rows() {
			if r > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%v", row)
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return "None"
	}
}
