// Package ops implements the node catalog of the autodiff graph.
//
// Each operator is a small struct implementing autodiff.Operator. Source
// operators (Input, ExpectedResponse, Constant, Weight, Bias) also implement
// autodiff.Settable; Weight and Bias implement autodiff.Learnable; the
// mode-dependent operators (Normalization, Mask) implement autodiff.ModeSetter.
//
// Constructors register the operator in a graph and return the node handle:
//
//	x := ops.NewInput(g, tensor.VectorShape(3))
//	w := ops.NewWeight(g, tensor.MatrixShape(3, 2), optim.Config{}, nil)
//	y := ops.NewMatrixMultiply(g)
//	_ = y.AddInput(x)
//	_ = y.AddInput(w)
//
// Forward and Backward operate on whole containers; per-example work is
// expressed through tensor.Container.Combine and Map so that batch, inference
// and parameter roles broadcast the same way in both directions.
package ops

import (
	"fmt"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// Catalog errors.
var (
	ErrUnknownActivation = errors.New("unknown activation")
	ErrUnknownLoss       = errors.New("unknown loss")
	ErrInvalidConfig     = errors.New("invalid operator config")
)

// base carries the identity shared by every operator.
type base struct {
	name  string
	typ   autodiff.Type
	arity int
}

func (b base) Name() string        { return b.name }
func (b base) Type() autodiff.Type { return b.typ }
func (b base) Arity() int          { return b.arity }

// mustShape panics on shapes no operator can hold.
func mustShape(op string, s tensor.Shape) {
	if err := s.Validate(); err != nil || s.Kind == tensor.KindNone {
		panic(fmt.Sprintf("%s: invalid shape %s", op, s))
	}
}

// conforms reports whether every value of c has shape s.
func conforms(c tensor.Container, s tensor.Shape) bool {
	if c.IsEmpty() || c.Len() == 0 {
		return false
	}
	for _, d := range c.Items() {
		if d.Shape() != s {
			return false
		}
	}
	return true
}

// reduceLike folds a broadcast gradient back onto a scalar operand.
func reduceLike(grad, operand tensor.Container) tensor.Container {
	if _, s := operand.Dim(); s.Kind == tensor.KindScalar {
		return grad.ElementSum()
	}
	return grad
}

// ones returns a container of the same role as c holding ones.
func ones(c tensor.Container) tensor.Container {
	return c.Map(tensor.Data.OnesLike)
}

// zeros returns a container of the same role as c holding zeros.
func zeros(c tensor.Container) tensor.Container {
	return c.Map(tensor.Data.ZerosLike)
}
