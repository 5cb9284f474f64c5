package tensor

import "fmt"

// Kind is the variant tag of a Data value.
type Kind uint8

// Data variants. KindNone is the invalid-result sentinel.
const (
	KindNone Kind = iota
	KindScalar
	KindVector
	KindMatrix
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	default:
		return "none"
	}
}

// Shape represents the dimensions of a Data value.
//
// Scalars are 1x1 and vectors are 1xN; the Kind disambiguates them from
// matrices of the same extent. The zero Shape is the shape of None.
type Shape struct {
	Kind Kind
	Rows int
	Cols int
}

// ScalarShape returns the shape of a scalar.
func ScalarShape() Shape {
	return Shape{Kind: KindScalar, Rows: 1, Cols: 1}
}

// VectorShape returns the shape of a vector of length n.
func VectorShape(n int) Shape {
	return Shape{Kind: KindVector, Rows: 1, Cols: n}
}

// MatrixShape returns the shape of a rows x cols matrix.
func MatrixShape(rows, cols int) Shape {
	return Shape{Kind: KindMatrix, Rows: rows, Cols: cols}
}

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if s.Kind == KindNone {
		return 0
	}
	return s.Rows * s.Cols
}

// Validate checks that the shape describes a constructible value.
func (s Shape) Validate() error {
	switch s.Kind {
	case KindNone:
		return nil
	case KindScalar:
		if s.Rows != 1 || s.Cols != 1 {
			return fmt.Errorf("invalid scalar shape %dx%d", s.Rows, s.Cols)
		}
	case KindVector:
		if s.Rows != 1 || s.Cols <= 0 {
			return fmt.Errorf("invalid vector shape %dx%d (must be 1xN, N > 0)", s.Rows, s.Cols)
		}
	case KindMatrix:
		if s.Rows <= 0 || s.Cols <= 0 {
			return fmt.Errorf("invalid matrix shape %dx%d (dimensions must be > 0)", s.Rows, s.Cols)
		}
	default:
		return fmt.Errorf("invalid kind %d", s.Kind)
	}
	return nil
}

// String returns a compact representation such as "vector[3]" or "matrix[2x3]".
func (s Shape) String() string {
	switch s.Kind {
	case KindScalar:
		return "scalar"
	case KindVector:
		return fmt.Sprintf("vector[%d]", s.Cols)
	case KindMatrix:
		return fmt.Sprintf("matrix[%dx%d]", s.Rows, s.Cols)
	default:
		return "none"
	}
}
