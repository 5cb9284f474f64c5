package ops

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// ParameterOp is a learnable value (weight or bias) together with its
// optimizer state.
//
// Forward returns a copy of the stored value, offset by the Nesterov
// look-ahead when that policy is active. Backward averages the incoming
// gradient over the batch and applies one optimizer step.
type ParameterOp struct {
	base
	shape tensor.Shape
	value tensor.Data
	state *optim.State
}

// NewWeight registers a weight initialised with Xavier/Glorot uniform
// values: U(-√(6/(fan_in+fan_out)), +√(6/(fan_in+fan_out))).
//
// src seeds the initialisation; nil uses the global source.
func NewWeight(g *autodiff.Graph, shape tensor.Shape, cfg optim.Config, src rand.Source) autodiff.Node {
	mustShape("weight", shape)
	fanIn, fanOut := fans(shape)
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}

	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = dist.Rand()
	}
	return newParameter(g, "weight", tensor.FromFloat64s(shape, values), cfg)
}

// NewBias registers a bias with every element set to init.
func NewBias(g *autodiff.Graph, shape tensor.Shape, cfg optim.Config, init float32) autodiff.Node {
	mustShape("bias", shape)
	return newParameter(g, "bias", tensor.Full(shape, init), cfg)
}

// NewParameter registers a learnable node holding value.
func NewParameter(g *autodiff.Graph, value tensor.Data, cfg optim.Config) autodiff.Node {
	mustShape("parameter", value.Shape())
	return newParameter(g, "parameter", value.Clone(), cfg)
}

func newParameter(g *autodiff.Graph, name string, value tensor.Data, cfg optim.Config) autodiff.Node {
	n := g.Add(&ParameterOp{
		base:  base{name: name, typ: autodiff.TypeParameter, arity: autodiff.AritySource},
		shape: value.Shape(),
		value: value,
		state: optim.NewState(cfg),
	})
	_ = n.ApplyOperation()
	return n
}

// fans returns the fan-in and fan-out of a parameter shape. A matrix maps
// rows inputs to cols outputs.
func fans(s tensor.Shape) (int, int) {
	switch s.Kind {
	case tensor.KindMatrix:
		return s.Rows, s.Cols
	case tensor.KindVector:
		return s.Cols, 1
	default:
		return 1, 1
	}
}

// Shape returns the parameter shape.
func (op *ParameterOp) Shape() tensor.Shape {
	return op.shape
}

// State returns the optimizer state.
func (op *ParameterOp) State() *optim.State {
	return op.state
}

// Value returns the stored value without look-ahead.
func (op *ParameterOp) Value() tensor.Data {
	return op.value
}

// Forward returns the stored value, offset by the look-ahead if any.
func (op *ParameterOp) Forward(*autodiff.Context) (tensor.Container, error) {
	v := op.value.Clone()
	if offset, ok := op.state.Lookahead(); ok {
		v.PlusAssign(offset)
	}
	return tensor.Parameter(v), nil
}

// Backward applies one optimizer step with the batch-averaged gradient.
func (op *ParameterOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	avg := grad.AverageBatch()
	if avg.IsEmpty() || avg.HasNone() {
		ctx.Logger().Warn("update skipped: invalid gradient", zap.Stringer("grad", grad))
		return nil, nil
	}
	g := avg.Single()
	if g.Shape() != op.shape && g.Kind() != tensor.KindScalar {
		ctx.Logger().Warn("update skipped: gradient shape mismatch",
			zap.Stringer("want", op.shape), zap.Stringer("got", g.Shape()))
		return nil, nil
	}
	op.value.MinusAssign(op.state.Step(g))
	return nil, nil
}

// SetData replaces the stored value. The optimizer state is kept.
func (op *ParameterOp) SetData(ctx *autodiff.Context, c tensor.Container) error {
	if c.Role() == tensor.RoleBatch || !conforms(c, op.shape) {
		ctx.Logger().Warn("data rejected: shape mismatch",
			zap.Stringer("want", op.shape), zap.Stringer("got", c))
		return nil
	}
	op.value = c.Single().Clone()
	return nil
}
