package tensor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a scalar as a number, a vector as an array, a matrix as
// an array of rows, and None as null.
func (d Data) MarshalJSON() ([]byte, error) {
	switch d.shape.Kind {
	case KindScalar:
		return json.Marshal(d.values[0])
	case KindVector:
		return json.Marshal(d.values)
	case KindMatrix:
		return json.Marshal(d.Rows())
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes the format produced by MarshalJSON.
func (d *Data) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = None()
		return nil
	}

	switch b[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("tensor: decode data: %w", err)
		}
		if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw[0]), []byte("[")) {
			var rows [][]float32
			if err := json.Unmarshal(b, &rows); err != nil {
				return fmt.Errorf("tensor: decode matrix: %w", err)
			}
			*d = Matrix(rows)
		} else {
			var values []float32
			if err := json.Unmarshal(b, &values); err != nil {
				return fmt.Errorf("tensor: decode vector: %w", err)
			}
			*d = Vector(values)
		}
	default:
		var v float32
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("tensor: decode scalar: %w", err)
		}
		*d = Scalar(v)
	}

	if d.IsNone() {
		return fmt.Errorf("tensor: malformed data %s", b)
	}
	return nil
}
