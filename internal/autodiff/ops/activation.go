package ops

import (
	"math"
	"sort"
	"sync"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// Activation is an elementwise function and its derivative with respect to
// the input.
type Activation struct {
	Name       string
	Func       func(x float32) float32
	Derivative func(x float32) float32
}

var (
	activationsMu sync.RWMutex
	activations   = map[string]Activation{}
)

func init() {
	for _, a := range []Activation{
		{
			Name: "linear",
			Func: func(x float32) float32 { return x },
			Derivative: func(float32) float32 {
				return 1
			},
		},
		{
			Name: "relu",
			Func: func(x float32) float32 {
				if x > 0 {
					return x
				}
				return 0
			},
			Derivative: func(x float32) float32 {
				if x > 0 {
					return 1
				}
				return 0
			},
		},
		{
			Name: "sigmoid",
			Func: sigmoid,
			Derivative: func(x float32) float32 {
				s := sigmoid(x)
				return s * (1 - s)
			},
		},
		{
			Name: "tanh",
			Func: func(x float32) float32 { return float32(math.Tanh(float64(x))) },
			Derivative: func(x float32) float32 {
				t := math.Tanh(float64(x))
				return float32(1 - t*t)
			},
		},
	} {
		activations[a.Name] = a
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// RegisterActivation adds or replaces an activation in the registry.
func RegisterActivation(a Activation) error {
	if a.Name == "" || a.Func == nil || a.Derivative == nil {
		return errors.Wrap(ErrInvalidConfig, "activation needs a name, a function and a derivative")
	}
	activationsMu.Lock()
	defer activationsMu.Unlock()
	activations[a.Name] = a
	return nil
}

// LookupActivation returns the registered activation called name.
func LookupActivation(name string) (Activation, error) {
	activationsMu.RLock()
	defer activationsMu.RUnlock()
	a, ok := activations[name]
	if !ok {
		return Activation{}, errors.Wrapf(ErrUnknownActivation, "%q", name)
	}
	return a, nil
}

// Activations lists the registered activation names in sorted order.
func Activations() []string {
	activationsMu.RLock()
	defer activationsMu.RUnlock()
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActivationOp applies a registered activation elementwise: output = f(x).
//
// Backward pass:
//   - df(x)/dx = f'(x) ⊙ grad
type ActivationOp struct {
	base
	fn Activation
}

// NewActivation registers an activation node using the function called name.
func NewActivation(g *autodiff.Graph, name string) (autodiff.Node, error) {
	fn, err := LookupActivation(name)
	if err != nil {
		return autodiff.Node{}, err
	}
	return g.Add(&ActivationOp{
		base: base{name: "activation:" + fn.Name, typ: autodiff.TypeOperation, arity: 1},
		fn:   fn,
	}), nil
}

// Function returns the activation in use.
func (op *ActivationOp) Function() Activation {
	return op.fn
}

// Forward applies f elementwise.
func (op *ActivationOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	return ctx.Input(0).Map(func(d tensor.Data) tensor.Data { return d.Map(op.fn.Func) }), nil
}

// Backward scales grad by f'(x).
func (op *ActivationOp) Backward(ctx *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	deriv := ctx.Input(0).Map(func(d tensor.Data) tensor.Data { return d.Map(op.fn.Derivative) })
	return []tensor.Container{deriv.Times(grad)}, nil
}
