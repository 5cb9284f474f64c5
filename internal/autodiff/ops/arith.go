package ops

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
)

// AddOp sums all of its inputs: output = x₀ + x₁ + … + xₙ.
//
// Backward pass:
//   - d(Σxᵢ)/dxᵢ = 1, so the upstream gradient is forwarded to every input
//
// Scalar inputs broadcast in the forward pass; their gradient is reduced
// back to a scalar.
type AddOp struct {
	base
}

// NewAdd registers an n-ary summation node.
func NewAdd(g *autodiff.Graph) autodiff.Node {
	return g.Add(&AddOp{base: base{name: "add", typ: autodiff.TypeOperation, arity: autodiff.ArityVariadic}})
}

// Forward sums the inputs.
func (op *AddOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	sum := ctx.Input(0)
	for i := 1; i < ctx.NumInputs(); i++ {
		sum = sum.Plus(ctx.Input(i))
	}
	return sum, nil
}

// Backward forwards grad to every input.
func (op *AddOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	grads := make([]tensor.Container, ctx.NumInputs())
	for i := range grads {
		grads[i] = reduceLike(grad, ctx.Input(i))
	}
	return grads, nil
}

// MultiplyOp is the elementwise product of two inputs: output = a ⊙ b.
//
// Backward pass:
//   - d(a⊙b)/da = grad ⊙ b
//   - d(a⊙b)/db = grad ⊙ a
type MultiplyOp struct {
	base
}

// NewMultiply registers an elementwise product node.
func NewMultiply(g *autodiff.Graph) autodiff.Node {
	return g.Add(&MultiplyOp{base: base{name: "multiply", typ: autodiff.TypeOperation, arity: 2}})
}

// Forward multiplies the inputs elementwise.
func (op *MultiplyOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).Times(ctx.Input(1)), nil
}

// Backward computes input gradients for the elementwise product.
func (op *MultiplyOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	a, b := ctx.Input(0), ctx.Input(1)
	return []tensor.Container{
		reduceLike(grad.Times(b), a),
		reduceLike(grad.Times(a), b),
	}, nil
}
