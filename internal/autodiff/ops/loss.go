package ops

import (
	"math"
	"strings"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LossEpsilon keeps probabilities away from exactly 0 and 1.
const LossEpsilon = 1e-7

// LossKind selects the error function of a loss node.
type LossKind uint8

// Loss kinds.
const (
	CrossEntropy LossKind = iota
	BinaryCrossEntropy
	MeanSquaredError
)

var lossNames = [...]string{
	CrossEntropy:       "cross_entropy",
	BinaryCrossEntropy: "binary_cross_entropy",
	MeanSquaredError:   "mean_squared_error",
}

// String returns the loss name.
func (k LossKind) String() string {
	if int(k) < len(lossNames) {
		return lossNames[k]
	}
	return "unknown"
}

// ParseLossKind resolves a loss by name.
func ParseLossKind(name string) (LossKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range lossNames {
		if n == name {
			return LossKind(k), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownLoss, "%q", name)
}

// LossOp computes a scalar error per example between an expected response y
// and an actual output p, with p clamped to [ε, 1-ε] for the logarithmic
// losses:
//
//	cross_entropy         L = -Σ y·log p
//	binary_cross_entropy  L = -Σ [y·log p + (1-y)·log(1-p)]
//	mean_squared_error    L = mean((p - y)²)
//
// Which input is the expected response is decided from the inputs' type
// tags, not from their position. When neither input is tagged
// TypeExpectedResponse the second input is taken as expected.
type LossOp struct {
	base
	kind LossKind
}

// NewLoss registers a loss node of the given kind.
func NewLoss(g *autodiff.Graph, kind LossKind) autodiff.Node {
	return g.Add(&LossOp{
		base: base{name: "loss:" + kind.String(), typ: autodiff.TypeOperation, arity: 2},
		kind: kind,
	})
}

// NewLossByName registers a loss node resolving kind by name.
func NewLossByName(g *autodiff.Graph, name string) (autodiff.Node, error) {
	kind, err := ParseLossKind(name)
	if err != nil {
		return autodiff.Node{}, err
	}
	return NewLoss(g, kind), nil
}

// Kind returns the error function.
func (op *LossOp) Kind() LossKind {
	return op.kind
}

// operands returns the input indices of the expected and actual values.
func (op *LossOp) operands(ctx *autodiff.Context) (expected, actual int, err error) {
	first := ctx.InputType(0) == autodiff.TypeExpectedResponse
	second := ctx.InputType(1) == autodiff.TypeExpectedResponse
	switch {
	case first && second:
		return 0, 0, errors.Wrap(autodiff.ErrUnknownOperand, "both loss inputs are expected responses")
	case first:
		return 0, 1, nil
	case !second:
		ctx.Logger().Debug("no expected response tag, using input order")
	}
	return 1, 0, nil
}

// Forward computes the per-example error.
func (op *LossOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	e, a, err := op.operands(ctx)
	if err != nil {
		return tensor.Empty(), err
	}
	return ctx.Input(e).Combine(op.Name(), ctx.Input(a), func(y, p tensor.Data) tensor.Data {
		return LossValue(op.kind, y, p)
	}), nil
}

// Backward returns the derivative with respect to each operand, scaled by
// the upstream gradient.
func (op *LossOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	e, a, err := op.operands(ctx)
	if err != nil {
		return nil, err
	}
	expected, actual := ctx.Input(e), ctx.Input(a)

	grads := make([]tensor.Container, 2)
	for _, wrtExpected := range []bool{false, true} {
		d := expected.Combine(op.Name(), actual, func(y, p tensor.Data) tensor.Data {
			return LossDerivative(op.kind, y, p, wrtExpected)
		})
		idx := a
		if wrtExpected {
			idx = e
		}
		grads[idx] = d.Times(grad)
	}
	if grads[a].HasNone() {
		ctx.Logger().Warn("loss gradient contains none", zap.Stringer("grad", grads[a]))
	}
	return grads, nil
}

func clamp(p float32) float64 {
	return math.Min(math.Max(float64(p), LossEpsilon), 1-LossEpsilon)
}

// LossValue returns the scalar error of actual p against expected y.
func LossValue(kind LossKind, y, p tensor.Data) tensor.Data {
	if y.IsNone() || p.IsNone() || y.Shape() != p.Shape() {
		diag.Report(kind.String(), "operand shapes %s and %s", y.Shape(), p.Shape())
		return tensor.None()
	}
	yv, pv := y.Values(), p.Values()

	var sum float64
	for i := range yv {
		yi := float64(yv[i])
		switch kind {
		case CrossEntropy:
			sum -= yi * math.Log(clamp(pv[i]))
		case BinaryCrossEntropy:
			pi := clamp(pv[i])
			sum -= yi*math.Log(pi) + (1-yi)*math.Log(1-pi)
		case MeanSquaredError:
			d := float64(pv[i]) - yi
			sum += d * d
		}
	}
	if kind == MeanSquaredError {
		sum /= float64(len(yv))
	}
	return tensor.Scalar(float32(sum))
}

// LossDerivative returns the elementwise derivative of the error with respect
// to p, or with respect to y when wrtExpected is set.
func LossDerivative(kind LossKind, y, p tensor.Data, wrtExpected bool) tensor.Data {
	if y.IsNone() || p.IsNone() || y.Shape() != p.Shape() {
		diag.Report(kind.String(), "operand shapes %s and %s", y.Shape(), p.Shape())
		return tensor.None()
	}
	yv, pv := y.Values(), p.Values()
	n := float64(len(yv))

	out := make([]float64, len(yv))
	for i := range yv {
		yi := float64(yv[i])
		switch kind {
		case CrossEntropy:
			pi := clamp(pv[i])
			if wrtExpected {
				out[i] = -math.Log(pi)
			} else {
				out[i] = -yi / pi
			}
		case BinaryCrossEntropy:
			pi := clamp(pv[i])
			if wrtExpected {
				out[i] = math.Log(1-pi) - math.Log(pi)
			} else {
				out[i] = -yi/pi + (1-yi)/(1-pi)
			}
		case MeanSquaredError:
			d := 2 * (float64(pv[i]) - yi) / n
			if wrtExpected {
				d = -d
			}
			out[i] = d
		}
	}
	return tensor.FromFloat64s(y.Shape(), out)
}
