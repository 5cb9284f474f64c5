package ops

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
)

// ElementSumOp reduces each example to the scalar sum of its elements.
//
// Backward pass:
//   - d(Σx)/dx = 1, so every element receives the upstream gradient
type ElementSumOp struct {
	base
}

// NewElementSum registers a full-reduction node.
func NewElementSum(g *autodiff.Graph) autodiff.Node {
	return g.Add(&ElementSumOp{base: base{name: "element_sum", typ: autodiff.TypeOperation, arity: 1}})
}

// Forward sums every element.
func (op *ElementSumOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).ElementSum(), nil
}

// Backward broadcasts grad over the input shape.
func (op *ElementSumOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{ones(ctx.Input(0)).Times(grad)}, nil
}

// SquareOp squares every element: output = x².
//
// Backward pass:
//   - d(x²)/dx = 2x
type SquareOp struct {
	base
}

// NewSquare registers an elementwise square node.
func NewSquare(g *autodiff.Graph) autodiff.Node {
	return g.Add(&SquareOp{base: base{name: "square", typ: autodiff.TypeOperation, arity: 1}})
}

// Forward squares the input.
func (op *SquareOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).Map(tensor.Data.Square), nil
}

// Backward computes 2x ⊙ grad.
func (op *SquareOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{ctx.Input(0).Scale(2).Times(grad)}, nil
}

// AbsOp takes the absolute value of every element: output = |x|.
//
// Backward pass:
//   - d|x|/dx = sign(x), with sign(0) = 0
type AbsOp struct {
	base
}

// NewAbsoluteValue registers an elementwise absolute value node.
func NewAbsoluteValue(g *autodiff.Graph) autodiff.Node {
	return g.Add(&AbsOp{base: base{name: "abs", typ: autodiff.TypeOperation, arity: 1}})
}

// Forward takes the absolute value of the input.
func (op *AbsOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).Map(tensor.Data.Abs), nil
}

// Backward computes sign(x) ⊙ grad.
func (op *AbsOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{ctx.Input(0).Map(tensor.Data.Sign).Times(grad)}, nil
}
