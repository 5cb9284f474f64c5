// Package regularize builds L1/L2 weight penalties as graph subgraphs.
//
// A penalty is not folded into the optimizer step. It is a chain of catalog
// nodes whose scalar output becomes one more input of the loss summation
// node, so the penalty gradient reaches the weight through the same backward
// wavefront as the primary loss:
//
//	weight ─▶ abs | square ─▶ element_sum ─▶ multiply(α) ─▶ loss sum
package regularize

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotSummation is returned when a penalty target is not an Add node.
var ErrNotSummation = errors.New("regularize: target is not a summation node")

// Kind selects the penalty norm.
type Kind uint8

// Penalty kinds.
const (
	L1 Kind = iota + 1 // α·Σ|w|
	L2                 // α·Σw²
)

// String returns "l1", "l2" or "unknown".
func (k Kind) String() string {
	switch k {
	case L1:
		return "l1"
	case L2:
		return "l2"
	default:
		return "unknown"
	}
}

// Penalty is one regularization term.
type Penalty struct {
	Kind  Kind
	Alpha float32
}

// Validate rejects unknown kinds and negative strengths.
func (p Penalty) Validate() error {
	if p.Kind != L1 && p.Kind != L2 {
		return errors.Errorf("regularize: unknown penalty kind %d", p.Kind)
	}
	if p.Alpha < 0 {
		return errors.Errorf("regularize: alpha must be >= 0, got %g", p.Alpha)
	}
	return nil
}

// Attach builds the penalty subgraph for weight and appends it as an input
// of sum, which must be an *ops.AddOp in the same graph. It returns the
// scaled penalty node.
func Attach(g *autodiff.Graph, sum, weight autodiff.Node, p Penalty) (autodiff.Node, error) {
	if err := p.Validate(); err != nil {
		return autodiff.Node{}, err
	}
	if _, ok := sum.Operator().(*ops.AddOp); !ok {
		return autodiff.Node{}, errors.Wrapf(ErrNotSummation, "got %q", sum.Name())
	}

	var norm autodiff.Node
	switch p.Kind {
	case L1:
		norm = ops.NewAbsoluteValue(g)
	case L2:
		norm = ops.NewSquare(g)
	}
	reduce := ops.NewElementSum(g)
	scale := ops.NewMultiply(g)
	alpha := ops.NewConstant(g, tensor.Scalar(p.Alpha))

	steps := []struct{ to, from autodiff.Node }{
		{norm, weight},
		{reduce, norm},
		{scale, reduce},
		{scale, alpha},
		{sum, scale},
	}
	for _, s := range steps {
		if err := s.to.AddInput(s.from); err != nil {
			return autodiff.Node{}, errors.WithMessagef(err, "regularize: attach %s penalty", p.Kind)
		}
	}

	g.Logger().Debug("penalty attached",
		zap.Stringer("kind", p.Kind),
		zap.Float32("alpha", p.Alpha),
		zap.Int("weight", int(weight.ID())),
	)
	return scale, nil
}

// AttachAll attaches the same penalty to every weight, chained into sum.
func AttachAll(g *autodiff.Graph, sum autodiff.Node, weights []autodiff.Node, p Penalty) ([]autodiff.Node, error) {
	out := make([]autodiff.Node, 0, len(weights))
	for _, w := range weights {
		n, err := Attach(g, sum, w, p)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Config holds the penalty strengths of a model. A zero strength disables
// that penalty.
type Config struct {
	L1 float32 `yaml:"l1" json:"l1"`
	L2 float32 `yaml:"l2" json:"l2"`
}

// Penalties returns the enabled penalties, L1 first.
func (c Config) Penalties() []Penalty {
	var ps []Penalty
	if c.L1 != 0 {
		ps = append(ps, Penalty{Kind: L1, Alpha: c.L1})
	}
	if c.L2 != 0 {
		ps = append(ps, Penalty{Kind: L2, Alpha: c.L2})
	}
	return ps
}

// Apply attaches every enabled penalty to every weight.
func (c Config) Apply(g *autodiff.Graph, sum autodiff.Node, weights ...autodiff.Node) error {
	for _, p := range c.Penalties() {
		if _, err := AttachAll(g, sum, weights, p); err != nil {
			return err
		}
	}
	return nil
}
