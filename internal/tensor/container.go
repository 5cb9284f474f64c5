package tensor

import (
	"fmt"
	"strings"

	"github.com/born-ml/nodegraph/internal/diag"
)

// Role describes how many logical examples a Container represents.
type Role uint8

// Container roles. RoleEmpty is the invalid-result sentinel.
const (
	RoleEmpty Role = iota
	RoleBatch
	RoleInference
	RoleParameter
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleBatch:
		return "batch"
	case RoleInference:
		return "inference"
	case RoleParameter:
		return "parameter"
	default:
		return "empty"
	}
}

// Container lifts Data into a usage role.
//
//   - Batch holds N independent examples.
//   - Inference holds exactly one example.
//   - Parameter holds one value shared by every example.
//   - Empty is the invalid-result sentinel.
//
// Binary operations follow one rule table:
//
//	Batch ⊕ Batch         equal length required, else Empty
//	Batch ⊕ Parameter     parameter broadcast against every element (either order)
//	Inference ⊕ Inference combined directly
//	Inference ⊕ Parameter combined directly (either order)
//	Parameter ⊕ Parameter combined directly
//
// Every other pairing (Batch with Inference, anything with Empty) yields Empty.
type Container struct {
	role  Role
	items []Data
}

// Empty returns the invalid-result sentinel.
func Empty() Container {
	return Container{}
}

// Batch wraps a batch of examples. The slice is copied.
func Batch(items ...Data) Container {
	return Container{role: RoleBatch, items: append([]Data(nil), items...)}
}

// Inference wraps a single example.
func Inference(d Data) Container {
	return Container{role: RoleInference, items: []Data{d}}
}

// Parameter wraps a value shared across every example.
func Parameter(d Data) Container {
	return Container{role: RoleParameter, items: []Data{d}}
}

// Role returns the usage role.
func (c Container) Role() Role {
	return c.role
}

// IsEmpty reports whether c is the invalid-result sentinel.
func (c Container) IsEmpty() bool {
	return c.role == RoleEmpty
}

// Len returns the number of stored values: the batch size for Batch, 1 for
// Inference and Parameter, 0 for Empty.
func (c Container) Len() int {
	return len(c.items)
}

// Items returns a copy of the stored values.
func (c Container) Items() []Data {
	return append([]Data(nil), c.items...)
}

// Item returns the i-th stored value.
func (c Container) Item(i int) Data {
	return c.items[i]
}

// Single returns the value of an Inference or Parameter container.
// It returns None for Batch and Empty.
func (c Container) Single() Data {
	if c.role != RoleInference && c.role != RoleParameter {
		return None()
	}
	return c.items[0]
}

// Dim returns the example count and the per-example shape.
func (c Container) Dim() (int, Shape) {
	if len(c.items) == 0 {
		return 0, Shape{}
	}
	return len(c.items), c.items[0].Shape()
}

// HasNone reports whether any stored value is None.
func (c Container) HasNone() bool {
	for _, d := range c.items {
		if d.IsNone() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c Container) Clone() Container {
	out := Container{role: c.role, items: make([]Data, len(c.items))}
	for i, d := range c.items {
		out.items[i] = d.Clone()
	}
	return out
}

// Plus returns c + other.
func (c Container) Plus(other Container) Container {
	return c.Combine("plus", other, Data.Plus)
}

// Minus returns c - other.
func (c Container) Minus(other Container) Container {
	return c.Combine("minus", other, Data.Minus)
}

// Times returns the elementwise product.
func (c Container) Times(other Container) Container {
	return c.Combine("times", other, Data.Times)
}

// Divide returns the elementwise quotient.
func (c Container) Divide(other Container) Container {
	return c.Combine("divide", other, Data.Divide)
}

// MatMul returns the per-example linear-algebra product.
func (c Container) MatMul(other Container) Container {
	return c.Combine("matmul", other, Data.MatMul)
}

// Combine applies fn pairwise following the container rule table.
func (c Container) Combine(op string, other Container, fn func(a, b Data) Data) Container {
	switch {
	case c.role == RoleBatch && other.role == RoleBatch:
		if len(c.items) != len(other.items) {
			diag.Report(op, "batch length mismatch %d vs %d", len(c.items), len(other.items))
			return Empty()
		}
		out := make([]Data, len(c.items))
		for i := range c.items {
			out[i] = fn(c.items[i], other.items[i])
		}
		return Container{role: RoleBatch, items: out}

	case c.role == RoleBatch && other.role == RoleParameter:
		p := other.items[0]
		out := make([]Data, len(c.items))
		for i := range c.items {
			out[i] = fn(c.items[i], p)
		}
		return Container{role: RoleBatch, items: out}

	case c.role == RoleParameter && other.role == RoleBatch:
		p := c.items[0]
		out := make([]Data, len(other.items))
		for i := range other.items {
			out[i] = fn(p, other.items[i])
		}
		return Container{role: RoleBatch, items: out}

	case c.role == RoleInference && (other.role == RoleInference || other.role == RoleParameter),
		c.role == RoleParameter && other.role == RoleInference:
		return Inference(fn(c.items[0], other.items[0]))

	case c.role == RoleParameter && other.role == RoleParameter:
		return Parameter(fn(c.items[0], other.items[0]))
	}

	diag.Report(op, "unsupported container pairing %s ⊕ %s", c.role, other.role)
	return Empty()
}

// Map applies fn to every stored value, keeping the role.
func (c Container) Map(fn func(Data) Data) Container {
	if c.IsEmpty() {
		return Empty()
	}
	out := make([]Data, len(c.items))
	for i, d := range c.items {
		out[i] = fn(d)
	}
	return Container{role: c.role, items: out}
}

// Scale multiplies every element by s.
func (c Container) Scale(s float32) Container {
	return c.Map(func(d Data) Data { return d.Scale(s) })
}

// Transpose transposes every stored value.
func (c Container) Transpose() Container {
	return c.Map(Data.Transpose)
}

// ElementSum reduces every stored value to a scalar.
func (c Container) ElementSum() Container {
	return c.Map(Data.ElementSum)
}

// Sqrt returns the elementwise square root of every stored value.
func (c Container) Sqrt() Container {
	return c.Map(Data.Sqrt)
}

// AverageBatch collapses a Batch into a Parameter holding the mean example.
// Inference and Parameter containers are returned as a Parameter unchanged.
func (c Container) AverageBatch() Container {
	switch c.role {
	case RoleBatch:
		if len(c.items) == 0 {
			diag.Report("average_batch", "empty batch")
			return Empty()
		}
		sum := c.items[0].Clone()
		for _, d := range c.items[1:] {
			sum.PlusAssign(d)
		}
		sum.ScaleAssign(1 / float32(len(c.items)))
		return Parameter(sum)
	case RoleInference, RoleParameter:
		return Parameter(c.items[0])
	default:
		diag.Report("average_batch", "empty container")
		return Empty()
	}
}

// ApproxEqual reports whether both containers have the same role, length,
// and approximately equal values.
func (c Container) ApproxEqual(other Container, tol float32) bool {
	if c.role != other.role || len(c.items) != len(other.items) {
		return false
	}
	for i := range c.items {
		if !c.items[i].ApproxEqual(other.items[i], tol) {
			return false
		}
	}
	return true
}

// String formats the container for diagnostics.
func (c Container) String() string {
	if c.IsEmpty() {
		return "Empty"
	}
	parts := make([]string, len(c.items))
	for i, d := range c.items {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s(%s)", c.role, strings.Join(parts, ", "))
}
