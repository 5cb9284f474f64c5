package ops

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/born-ml/nodegraph/internal/tensor"
)

// MatMulOp represents a matrix product: output = a · b.
//
// Vectors are oriented automatically (see tensor.Data.MatMul), so the
// backward rule depends on which orientation the forward pass chose:
//
//	a ⊗ b (outer)        da = G·b      db = a·G
//	row a · B            da = B·g      db = a ⊗ g
//	column a: B·a        da = g·B      db = g ⊗ a
//	A · column b         da = g ⊗ b    db = g·A
//	row b: bᵀ·A          da = b ⊗ g    db = A·g
//	A · B                da = G·Bᵀ     db = Aᵀ·G
//	scalar a · B         da = Σ(G⊙B)   db = a·G
//
// Where G (or g) is the upstream gradient.
type MatMulOp struct {
	base
}

// NewMatrixMultiply registers a matrix product node with exactly two inputs.
func NewMatrixMultiply(g *autodiff.Graph) autodiff.Node {
	return g.Add(&MatMulOp{base: base{name: "matmul", typ: autodiff.TypeOperation, arity: 2}})
}

// Forward computes a · b per example.
func (op *MatMulOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).MatMul(ctx.Input(1)), nil
}

// Backward computes input gradients for the matrix product.
func (op *MatMulOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	a, b := ctx.Input(0), ctx.Input(1)
	gradA, gradB := matmulRules(a, b)
	return []tensor.Container{
		b.Combine("matmul_backward", grad, gradA),
		a.Combine("matmul_backward", grad, gradB),
	}, nil
}

// matmulRules selects the per-example gradient functions for a · b.
// gradA receives (b, g) and gradB receives (a, g).
func matmulRules(a, b tensor.Container) (gradA, gradB func(x, g tensor.Data) tensor.Data) {
	_, sa := a.Dim()
	_, sb := b.Dim()
	none := func(x, g tensor.Data) tensor.Data { return tensor.None() }

	switch {
	case sa.Kind == tensor.KindScalar:
		gradA = func(b, g tensor.Data) tensor.Data { return g.Times(b).ElementSum() }
		gradB = func(a, g tensor.Data) tensor.Data { return g.Times(a) }

	case sb.Kind == tensor.KindScalar:
		gradA = func(b, g tensor.Data) tensor.Data { return g.Times(b) }
		gradB = func(a, g tensor.Data) tensor.Data { return g.Times(a).ElementSum() }

	case sa.Kind == tensor.KindVector && sb.Kind == tensor.KindVector:
		gradA = func(b, g tensor.Data) tensor.Data { return g.MatMul(b) }
		gradB = func(a, g tensor.Data) tensor.Data { return a.MatMul(g) }

	case sa.Kind == tensor.KindVector && sb.Kind == tensor.KindMatrix && sa.Cols == sb.Rows:
		gradA = func(b, g tensor.Data) tensor.Data { return b.MatMul(g) }
		gradB = func(a, g tensor.Data) tensor.Data { return a.MatMul(g) }

	case sa.Kind == tensor.KindVector && sb.Kind == tensor.KindMatrix && sa.Cols == sb.Cols:
		gradA = func(b, g tensor.Data) tensor.Data { return g.MatMul(b) }
		gradB = func(a, g tensor.Data) tensor.Data { return g.MatMul(a) }

	case sa.Kind == tensor.KindMatrix && sb.Kind == tensor.KindVector && sb.Cols == sa.Cols:
		gradA = func(b, g tensor.Data) tensor.Data { return g.MatMul(b) }
		gradB = func(a, g tensor.Data) tensor.Data { return g.MatMul(a) }

	case sa.Kind == tensor.KindMatrix && sb.Kind == tensor.KindVector && sb.Cols == sa.Rows:
		gradA = func(b, g tensor.Data) tensor.Data { return b.MatMul(g) }
		gradB = func(a, g tensor.Data) tensor.Data { return a.MatMul(g) }

	case sa.Kind == tensor.KindMatrix && sb.Kind == tensor.KindMatrix:
		gradA = func(b, g tensor.Data) tensor.Data { return g.MatMul(b.Transpose()) }
		gradB = func(a, g tensor.Data) tensor.Data { return a.Transpose().MatMul(g) }

	default:
		diag.Report("matmul_backward", "no gradient rule for %s and %s", sa, sb)
		return none, none
	}
	return gradA, gradB
}
