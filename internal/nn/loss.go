package nn

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/regularize"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// LossUnit closes a network: an expected-response input, the loss node, and
// a summation node that regularization penalties are chained into.
//
// The summation node is the graph root for training:
//
//	prediction ─┐
//	            ├─▶ loss ─▶ sum ◀─ penalties
//	expected  ──┘
type LossUnit struct {
	expected autodiff.Node
	loss     autodiff.Node
	sum      autodiff.Node
}

// NewLossUnit wires a loss of the given kind between prediction and a new
// expected-response node of the given shape.
func NewLossUnit(g *autodiff.Graph, prediction autodiff.Node, shape tensor.Shape, kind ops.LossKind) (*LossUnit, error) {
	u := &LossUnit{
		expected: ops.NewExpectedResponse(g, shape),
		loss:     ops.NewLoss(g, kind),
		sum:      ops.NewAdd(g),
	}
	if err := wire(u.loss, prediction, u.expected); err != nil {
		return nil, errors.WithMessage(err, "nn: loss unit")
	}
	if err := u.sum.AddInput(u.loss); err != nil {
		return nil, errors.WithMessage(err, "nn: loss unit")
	}
	return u, nil
}

// Root returns the summation node to run Forward and Backward on.
func (u *LossUnit) Root() autodiff.Node {
	return u.sum
}

// Expected returns the expected-response node.
func (u *LossUnit) Expected() autodiff.Node {
	return u.expected
}

// Loss returns the loss node without penalties.
func (u *LossUnit) Loss() autodiff.Node {
	return u.loss
}

// Regularize chains the configured penalties of every weight into the root.
func (u *LossUnit) Regularize(cfg regularize.Config, weights ...autodiff.Node) error {
	return cfg.Apply(u.sum.Graph(), u.sum, weights...)
}

// Step runs one training step on a single example or a batch: it sets the
// input and expected data, evaluates the root, and backpropagates. It returns
// the root value before the update.
func (u *LossUnit) Step(input autodiff.Node, x, y tensor.Container) (tensor.Container, error) {
	if err := input.SetData(x); err != nil {
		return tensor.Empty(), err
	}
	if err := u.expected.SetData(y); err != nil {
		return tensor.Empty(), err
	}
	g := u.sum.Graph()
	out, err := g.Forward(u.sum)
	if err != nil {
		return tensor.Empty(), err
	}
	if err := g.Backward(u.sum); err != nil {
		g.ResetGradients()
		return tensor.Empty(), err
	}
	return out, nil
}
