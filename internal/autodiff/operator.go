package autodiff

import (
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
	"go.uber.org/zap"
)

// Type is the role tag of a node, cached on the node itself so neighbours can
// branch on it without knowing the concrete operator.
type Type uint8

// Node roles.
const (
	TypeNone Type = iota
	TypeParameter
	TypeInput
	TypeExpectedResponse
	TypeOperation
)

// String returns the role name.
func (t Type) String() string {
	switch t {
	case TypeParameter:
		return "parameter"
	case TypeInput:
		return "input"
	case TypeExpectedResponse:
		return "expected_response"
	case TypeOperation:
		return "operation"
	default:
		return "none"
	}
}

// Mode is the network mode pushed into mode-aware nodes before evaluation.
type Mode uint8

// Network modes. ModeUnset is the zero value; mode-aware nodes refuse to
// evaluate until a real mode has been set.
const (
	ModeUnset Mode = iota
	ModeTrain
	ModeInference
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeInference:
		return "inference"
	default:
		return "unset"
	}
}

// Arity values with special meaning.
const (
	// AritySource marks nodes that take no inputs (their value is set directly).
	AritySource = 0
	// ArityVariadic marks nodes that accept one or more inputs.
	ArityVariadic = -1
)

// Operator implements the kind-specific rules of a node.
//
// Forward computes the node's value from the cached values of its inputs.
// Backward receives the accumulated upstream gradient and returns one
// gradient per input, in input order. Source operators return nil.
type Operator interface {
	// Name identifies the operator kind in diagnostics (e.g. "matmul").
	Name() string

	// Type returns the role tag cached on the node.
	Type() Type

	// Arity returns the exact number of inputs, AritySource, or ArityVariadic.
	Arity() int

	// Forward computes the node's value.
	Forward(ctx *Context) (tensor.Container, error)

	// Backward computes the gradient for each input.
	Backward(ctx *Context, grad tensor.Container) ([]tensor.Container, error)
}

// Settable is implemented by operators whose value is injected externally
// (inputs, expected responses, constants, weights, biases).
//
// A shape that disagrees with the declared one is a soft rejection: the
// operator logs a warning, keeps its previous value, and returns nil.
type Settable interface {
	SetData(ctx *Context, c tensor.Container) error
}

// ModeSetter is implemented by operators whose behaviour depends on the
// network mode (normalization, dropout mask).
type ModeSetter interface {
	SetMode(m Mode)
	Mode() Mode
}

// Learnable is implemented by operators that own optimizer state.
type Learnable interface {
	// State returns the optimizer state.
	State() *optim.State

	// Value returns the stored parameter value (without look-ahead).
	Value() tensor.Data
}

// Context gives an operator access to its node during Forward and Backward.
type Context struct {
	g  *Graph
	id NodeID
}

// Node returns the handle of the node being evaluated.
func (c *Context) Node() Node {
	return Node{g: c.g, id: c.id}
}

// NumInputs returns the number of wired inputs.
func (c *Context) NumInputs() int {
	return len(c.g.nodes[c.id].inputs)
}

// Input returns the cached value of the i-th input.
func (c *Context) Input(i int) tensor.Container {
	return c.g.nodes[c.g.nodes[c.id].inputs[i]].value
}

// InputType returns the role tag of the i-th input.
func (c *Context) InputType(i int) Type {
	return c.g.nodes[c.g.nodes[c.id].inputs[i]].typ
}

// Value returns the node's own cached value from the last forward pass.
func (c *Context) Value() tensor.Container {
	return c.g.nodes[c.id].value
}

// Logger returns the graph logger annotated with the node.
func (c *Context) Logger() *zap.Logger {
	n := c.g.nodes[c.id]
	return c.g.logger.With(zap.Int("node", int(c.id)), zap.String("kind", n.op.Name()))
}
