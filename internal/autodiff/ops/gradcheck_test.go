package ops_test

import (
	"testing"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

// probe returns fixed, non-uniform weights used to contract an output into a
// scalar, so every output element receives a distinct upstream gradient.
func probe(s tensor.Shape) tensor.Data {
	values := make([]float32, s.NumElements())
	for i := range values {
		values[i] = float32(i%4)*0.5 - 0.6
	}
	return tensor.FromSlice(s, values)
}

// contract builds Σ probe ⊙ out and returns the root.
func contract(t *testing.T, g *autodiff.Graph, out autodiff.Node) autodiff.Node {
	t.Helper()
	v, err := g.Forward(out)
	require.NoError(t, err)

	c := ops.NewConstant(g, probe(v.Single().Shape()))
	mul := ops.NewMultiply(g)
	wire(t, mul, out, c)
	sum := ops.NewElementSum(g)
	wire(t, sum, mul)
	return sum
}

// numeric returns the central-difference gradient of f at x.
func numeric(f func(tensor.Data) float32, x tensor.Data, step float64) []float64 {
	return fd.Gradient(nil, func(p []float64) float64 {
		return float64(f(tensor.FromFloat64s(x.Shape(), p)))
	}, x.Float64s(), &fd.Settings{Formula: fd.Central, Step: step})
}

func analytic(t *testing.T, before tensor.Data, n autodiff.Node) []float64 {
	t.Helper()
	return before.Minus(value(t, n)).Float64s()
}

// TestMatMul_GradientCheck compares the analytic gradients of Y = A·B with
// finite differences for every operand orientation.
func TestMatMul_GradientCheck(t *testing.T) {
	tests := []struct {
		name string
		a, b tensor.Data
	}{
		{
			name: "vector·matrix (row)",
			a:    tensor.Vector([]float32{0.5, -1, 2}),
			b:    tensor.Matrix([][]float32{{1, 2}, {0.5, -1}, {-2, 0.25}}),
		},
		{
			name: "vector·matrix (column)",
			a:    tensor.Vector([]float32{0.5, -1}),
			b:    tensor.Matrix([][]float32{{1, 2}, {0.5, -1}, {-2, 0.25}}),
		},
		{
			name: "matrix·vector (column)",
			a:    tensor.Matrix([][]float32{{1, 2, 3}, {-1, 0.5, 2}}),
			b:    tensor.Vector([]float32{0.3, -0.7, 1.1}),
		},
		{
			name: "matrix·vector (row)",
			a:    tensor.Matrix([][]float32{{1, 2, 3}, {-1, 0.5, 2}}),
			b:    tensor.Vector([]float32{0.3, -0.7}),
		},
		{
			name: "matrix·matrix",
			a:    tensor.Matrix([][]float32{{1, 2, 3}, {-1, 0.5, 2}}),
			b:    tensor.Matrix([][]float32{{1, 0}, {0.5, -1}, {2, 0.25}}),
		},
		{
			name: "square matrix·vector",
			a:    tensor.Matrix([][]float32{{1, 2}, {-1, 0.5}}),
			b:    tensor.Vector([]float32{0.3, -0.7}),
		},
		{
			name: "vector⊗vector",
			a:    tensor.Vector([]float32{1, -2}),
			b:    tensor.Vector([]float32{0.5, 1.5, -1}),
		},
		{
			name: "scalar·matrix",
			a:    tensor.Scalar(1.5),
			b:    tensor.Matrix([][]float32{{1, 2}, {-1, 0.5}}),
		},
		{
			name: "vector·scalar",
			a:    tensor.Vector([]float32{1, -2, 0.5}),
			b:    tensor.Scalar(-0.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := autodiff.New()
			a := ops.NewParameter(g, tt.a, sgd)
			b := ops.NewParameter(g, tt.b, sgd)
			mm := ops.NewMatrixMultiply(g)
			wire(t, mm, a, b)
			root := contract(t, g, mm)

			out, err := g.Forward(mm)
			require.NoError(t, err)
			w := probe(out.Single().Shape())
			f := func(a, b tensor.Data) float32 {
				v, _ := a.MatMul(b).Times(w).ElementSum().ScalarValue()
				return v
			}

			_, err = g.Forward(root)
			require.NoError(t, err)
			require.NoError(t, g.Backward(root))

			wantA := numeric(func(x tensor.Data) float32 { return f(x, tt.b) }, tt.a, 0.1)
			wantB := numeric(func(x tensor.Data) float32 { return f(tt.a, x) }, tt.b, 0.1)
			assert.InDeltaSlice(t, wantA, analytic(t, tt.a, a), 1e-3, "dA")
			assert.InDeltaSlice(t, wantB, analytic(t, tt.b, b), 1e-3, "dB")
		})
	}
}

func TestSoftmax_GradientCheck(t *testing.T) {
	x0 := tensor.Vector([]float32{0.2, -1, 1.5, 0.3})

	g := autodiff.New()
	x := ops.NewParameter(g, x0, sgd)
	s := ops.NewSoftmax(g)
	wire(t, s, x)
	root := contract(t, g, s)

	w := probe(x0.Shape())
	f := func(d tensor.Data) float32 {
		g := autodiff.New()
		in := ops.NewConstant(g, d)
		s := ops.NewSoftmax(g)
		_ = s.AddInput(in)
		out, _ := g.Forward(s)
		v, _ := out.Single().Times(w).ElementSum().ScalarValue()
		return v
	}

	_, err := g.Forward(root)
	require.NoError(t, err)
	require.NoError(t, g.Backward(root))

	assert.InDeltaSlice(t, numeric(f, x0, 1e-3), analytic(t, x0, x), 1e-3)
}

func TestActivation_GradientCheck(t *testing.T) {
	// Points away from the relu kink.
	x0 := tensor.Vector([]float32{-1.2, -0.3, 0.4, 2})

	for _, name := range []string{"linear", "relu", "sigmoid", "tanh"} {
		t.Run(name, func(t *testing.T) {
			fn, err := ops.LookupActivation(name)
			require.NoError(t, err)

			g := autodiff.New()
			x := ops.NewParameter(g, x0, sgd)
			act, err := ops.NewActivation(g, name)
			require.NoError(t, err)
			wire(t, act, x)
			root := contract(t, g, act)

			w := probe(x0.Shape())
			f := func(d tensor.Data) float32 {
				v, _ := d.Map(fn.Func).Times(w).ElementSum().ScalarValue()
				return v
			}

			_, err = g.Forward(root)
			require.NoError(t, err)
			require.NoError(t, g.Backward(root))

			assert.InDeltaSlice(t, numeric(f, x0, 1e-3), analytic(t, x0, x), 1e-3)
		})
	}
}

func TestLoss_GradientCheck(t *testing.T) {
	y0 := tensor.Vector([]float32{0.7, 0.2, 0.1})
	p0 := tensor.Vector([]float32{0.5, 0.3, 0.2})

	for _, kind := range []ops.LossKind{ops.CrossEntropy, ops.BinaryCrossEntropy, ops.MeanSquaredError} {
		t.Run(kind.String(), func(t *testing.T) {
			g := autodiff.New()
			p := ops.NewParameter(g, p0, sgd)
			y := ops.NewExpectedResponse(g, y0.Shape())
			require.NoError(t, y.SetData(tensor.Inference(y0)))
			loss := ops.NewLoss(g, kind)
			wire(t, loss, p, y)

			_, err := g.Forward(loss)
			require.NoError(t, err)
			require.NoError(t, g.Backward(loss))

			f := func(d tensor.Data) float32 {
				v, _ := ops.LossValue(kind, y0, d).ScalarValue()
				return v
			}
			assert.InDeltaSlice(t, numeric(f, p0, 1e-3), analytic(t, p0, p), 2e-3)
		})
	}
}
