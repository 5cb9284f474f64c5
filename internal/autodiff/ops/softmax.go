package ops

import (
	"math"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// SoftmaxOp represents softmax over all elements of each example:
//
//	softmax(x)ᵢ = exp(xᵢ - max(x)) / Σⱼ exp(xⱼ - max(x))
//
// Backward pass uses the exact Jacobian
//
//	J[i][j] = sᵢ(1 - sⱼ)  if i = j
//	J[i][j] = -sᵢsⱼ       otherwise
//
// contracted with the upstream gradient. J is N×N, so this is only suitable
// for small output widths.
type SoftmaxOp struct {
	base
}

// NewSoftmax registers a softmax node.
func NewSoftmax(g *autodiff.Graph) autodiff.Node {
	return g.Add(&SoftmaxOp{base: base{name: "softmax", typ: autodiff.TypeOperation, arity: 1}})
}

// Forward computes the stabilised softmax.
func (op *SoftmaxOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).Map(softmax), nil
}

// Backward contracts the softmax Jacobian with grad.
func (op *SoftmaxOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{ctx.Value().Combine("softmax_backward", grad, softmaxBackward)}, nil
}

func softmax(d tensor.Data) tensor.Data {
	if d.IsNone() {
		return d
	}
	x := d.Float64s()
	shift := floats.Max(x)
	for i, v := range x {
		x[i] = math.Exp(v - shift)
	}
	floats.Scale(1/floats.Sum(x), x)
	return tensor.FromFloat64s(d.Shape(), x)
}

// SoftmaxJacobian returns the N×N Jacobian of softmax at output s.
func SoftmaxJacobian(s tensor.Data) tensor.Data {
	sv := s.Values()
	n := len(sv)
	jac := make([]float32, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				jac[i*n+j] = sv[i] * (1 - sv[j])
			} else {
				jac[i*n+j] = -sv[i] * sv[j]
			}
		}
	}
	return tensor.FromSlice(tensor.MatrixShape(n, n), jac)
}

func softmaxBackward(s, g tensor.Data) tensor.Data {
	if s.IsNone() || g.IsNone() {
		return tensor.None()
	}
	if s.Kind() == tensor.KindScalar {
		// softmax of a single element is constant.
		return tensor.Scalar(0)
	}
	if v, ok := g.ScalarValue(); ok {
		g = s.OnesLike().Scale(v)
	}
	n := s.Len()
	flat := tensor.FromSlice(tensor.VectorShape(n), g.Values())
	contracted := SoftmaxJacobian(s).MatMul(flat)
	return tensor.FromSlice(s.Shape(), contracted.Values())
}
