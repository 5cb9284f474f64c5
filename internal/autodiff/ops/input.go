package ops

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"go.uber.org/zap"
)

// InputOp holds externally injected data: network inputs, expected
// responses, and constants.
//
// SetData rejects values whose per-example shape disagrees with the declared
// shape. The rejection is soft: a warning is logged and the previous value
// is kept.
type InputOp struct {
	base
	shape tensor.Shape
	value tensor.Container
}

// NewInput registers a network input of the given per-example shape.
func NewInput(g *autodiff.Graph, shape tensor.Shape) autodiff.Node {
	mustShape("input", shape)
	return g.Add(&InputOp{
		base:  base{name: "input", typ: autodiff.TypeInput, arity: autodiff.AritySource},
		shape: shape,
		value: tensor.Empty(),
	})
}

// NewExpectedResponse registers the target value of a loss.
func NewExpectedResponse(g *autodiff.Graph, shape tensor.Shape) autodiff.Node {
	mustShape("expected_response", shape)
	return g.Add(&InputOp{
		base:  base{name: "expected_response", typ: autodiff.TypeExpectedResponse, arity: autodiff.AritySource},
		shape: shape,
		value: tensor.Empty(),
	})
}

// NewConstant registers a fixed value shared by every example.
func NewConstant(g *autodiff.Graph, d tensor.Data) autodiff.Node {
	mustShape("constant", d.Shape())
	n := g.Add(&InputOp{
		base:  base{name: "constant", typ: autodiff.TypeNone, arity: autodiff.AritySource},
		shape: d.Shape(),
		value: tensor.Parameter(d.Clone()),
	})
	_ = n.ApplyOperation()
	return n
}

// Shape returns the declared per-example shape.
func (op *InputOp) Shape() tensor.Shape {
	return op.shape
}

// Forward returns the injected value.
func (op *InputOp) Forward(*autodiff.Context) (tensor.Container, error) {
	return op.value, nil
}

// Backward is a no-op: inputs are terminal.
func (op *InputOp) Backward(*autodiff.Context, tensor.Container) ([]tensor.Container, error) {
	return nil, nil
}

// SetData replaces the injected value.
func (op *InputOp) SetData(ctx *autodiff.Context, c tensor.Container) error {
	if !conforms(c, op.shape) {
		ctx.Logger().Warn("data rejected: shape mismatch",
			zap.Stringer("want", op.shape), zap.Stringer("got", c))
		return nil
	}
	op.value = c.Clone()
	return nil
}
