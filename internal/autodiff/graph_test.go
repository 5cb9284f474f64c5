package autodiff_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

// sgd makes an optimizer step equal to the raw gradient.
var sgd = optim.Config{LearningRate: 1}

// countingOp forwards its input and counts evaluations.
type countingOp struct {
	calls int
}

func (op *countingOp) Name() string        { return "counting" }
func (op *countingOp) Type() autodiff.Type { return autodiff.TypeOperation }
func (op *countingOp) Arity() int          { return 1 }

func (op *countingOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	op.calls++
	return ctx.Input(0), nil
}

func (op *countingOp) Backward(_ *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{grad}, nil
}

// silentOp returns no gradients at all.
type silentOp struct{ countingOp }

func (op *silentOp) Backward(*autodiff.Context, tensor.Container) ([]tensor.Container, error) {
	return nil, nil
}

func value(t *testing.T, n autodiff.Node) tensor.Data {
	t.Helper()
	rec, err := n.SaveParameters()
	require.NoError(t, err)
	return rec.Value
}

func wire(t *testing.T, n autodiff.Node, inputs ...autodiff.Node) {
	t.Helper()
	for _, in := range inputs {
		require.NoError(t, n.AddInput(in))
	}
}

// TestNode_FanInCounter tests that a node with k consumers becomes ready
// after exactly k gradient contributions.
func TestNode_FanInCounter(t *testing.T) {
	g := autodiff.New()
	x := ops.NewParameter(g, tensor.Scalar(1), sgd)

	const k = 3
	for i := 0; i < k; i++ {
		wire(t, ops.NewAdd(g), x)
	}
	require.Len(t, x.Outputs(), k)

	for i := 0; i < k; i++ {
		assert.False(t, x.ShouldProcessBackprop(), "after %d contributions", i)
		x.AddGradient(tensor.Parameter(tensor.Scalar(float32(i + 1))))
	}
	assert.True(t, x.ShouldProcessBackprop())
	assert.Equal(t, k, x.GradCount())

	v, _ := x.Gradient().Single().ScalarValue()
	assert.Equal(t, float32(6), v, "contributions are summed")

	require.NoError(t, x.ApplyJacobian())
	assert.Equal(t, 0, x.GradCount(), "counter resets after propagation")
	assert.True(t, x.Gradient().IsEmpty())
	assert.InDelta(t, -5, value(t, x).At(0, 0), 1e-6, "1 - 6")
}

func TestNode_AddInputArity(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := autodiff.New(autodiff.WithLogger(zap.New(core)))

	a := ops.NewInput(g, tensor.VectorShape(2))
	b := ops.NewInput(g, tensor.VectorShape(2))
	c := ops.NewInput(g, tensor.VectorShape(2))

	mm := ops.NewMatrixMultiply(g)
	wire(t, mm, a, b)

	err := mm.AddInput(c)
	assert.True(t, errors.Is(err, autodiff.ErrArity))
	assert.Len(t, mm.Inputs(), 2, "prior wiring is kept")
	assert.Empty(t, c.Outputs())
	assert.Equal(t, 1, logs.FilterMessage("input rejected").Len())

	err = a.AddInput(b)
	assert.True(t, errors.Is(err, autodiff.ErrArity), "source nodes take no inputs")

	sum := ops.NewAdd(g)
	wire(t, sum, a, b, c)
	assert.Len(t, sum.Inputs(), 3, "add is variadic")
}

func TestNode_AddInputRejectsCycles(t *testing.T) {
	g := autodiff.New()
	a := ops.NewAdd(g)
	b := ops.NewAdd(g)
	c := ops.NewAdd(g)
	wire(t, b, a)
	wire(t, c, b)

	assert.True(t, errors.Is(a.AddInput(c), autodiff.ErrCycle))
	assert.True(t, errors.Is(a.AddInput(a), autodiff.ErrCycle))
	assert.Empty(t, a.Inputs())
}

func TestNode_AddInputRejectsForeignNodes(t *testing.T) {
	g1, g2 := autodiff.New(), autodiff.New()
	sum := ops.NewAdd(g1)
	x := ops.NewInput(g2, tensor.ScalarShape())

	assert.True(t, errors.Is(sum.AddInput(x), autodiff.ErrForeignNode))
	assert.NotEqual(t, g1.ID(), g2.ID())

	var zero autodiff.Node
	assert.True(t, errors.Is(sum.AddInput(zero), autodiff.ErrInvalidHandle))
	_, err := g1.Forward(x)
	assert.True(t, errors.Is(err, autodiff.ErrInvalidHandle))
}

func TestNode_SetData(t *testing.T) {
	g := autodiff.New()
	x := ops.NewInput(g, tensor.VectorShape(3))

	require.NoError(t, x.SetData(tensor.Inference(tensor.Vector([]float32{1, 2, 3}))))
	assert.Equal(t, []float32{1, 2, 3}, x.Data().Single().Values())

	// Wrong shape: soft rejection keeps the previous value.
	require.NoError(t, x.SetData(tensor.Inference(tensor.Vector([]float32{1, 2}))))
	assert.Equal(t, []float32{1, 2, 3}, x.Data().Single().Values())

	batch := tensor.Batch(tensor.Vector([]float32{1, 1, 1}), tensor.Vector([]float32{2, 2, 2}))
	require.NoError(t, x.SetData(batch))
	assert.Equal(t, 2, x.Data().Len())

	sum := ops.NewAdd(g)
	assert.True(t, errors.Is(sum.SetData(batch), autodiff.ErrNotSettable))
}

func TestGraph_Validate(t *testing.T) {
	g := autodiff.New()
	x := ops.NewInput(g, tensor.VectorShape(2))
	y := ops.NewExpectedResponse(g, tensor.VectorShape(2))

	loss := ops.NewLoss(g, ops.MeanSquaredError)
	wire(t, loss, x)
	ops.NewAdd(g)

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, autodiff.ErrMissingInput))
	assert.Len(t, multierr.Errors(err), 2, "one issue per broken node")

	_, err = g.Forward(loss)
	assert.True(t, errors.Is(err, autodiff.ErrMissingInput))

	wire(t, loss, y)
	g2 := autodiff.New()
	assert.NoError(t, g2.Validate())
}

// TestGraph_ForwardMemoises tests that a node with fan-out > 1 is computed
// once per step by Graph.Forward and once per consumer by ApplyOperation,
// with identical results.
func TestGraph_ForwardMemoises(t *testing.T) {
	g := autodiff.New()
	x := ops.NewInput(g, tensor.VectorShape(2))
	counter := &countingOp{}
	shared := g.Add(counter)
	wire(t, shared, x)

	left, err := ops.NewActivation(g, "relu")
	require.NoError(t, err)
	right, err := ops.NewActivation(g, "sigmoid")
	require.NoError(t, err)
	wire(t, left, shared)
	wire(t, right, shared)
	sum := ops.NewAdd(g)
	wire(t, sum, left, right)

	require.NoError(t, x.SetData(tensor.Inference(tensor.Vector([]float32{-1, 2}))))

	require.NoError(t, sum.ApplyOperation())
	assert.Equal(t, 2, counter.calls)
	recursive := sum.Data()

	counter.calls = 0
	memo, err := g.Forward(sum)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls)
	assert.True(t, recursive.ApproxEqual(memo, 0))

	_, err = g.Forward(sum)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls, "every step recomputes")
}

// TestGraph_BackwardFanOut tests gradient accumulation through a parameter
// used twice: f(x) = x² + 2x, df/dx = 2x + 2.
func TestGraph_BackwardFanOut(t *testing.T) {
	g := autodiff.New()
	x := ops.NewParameter(g, tensor.Scalar(3), sgd)
	two := ops.NewConstant(g, tensor.Scalar(2))

	sq := ops.NewSquare(g)
	wire(t, sq, x)
	lin := ops.NewMultiply(g)
	wire(t, lin, x, two)
	f := ops.NewAdd(g)
	wire(t, f, sq, lin)

	out, err := g.Forward(f)
	require.NoError(t, err)
	v, _ := out.Single().ScalarValue()
	assert.Equal(t, float32(15), v)

	require.NoError(t, g.Backward(f))
	assert.InDelta(t, 3-8, value(t, x).At(0, 0), 1e-6)

	for _, n := range g.Nodes() {
		assert.Equal(t, 0, n.GradCount(), "node %d", n.ID())
		assert.True(t, n.Gradient().IsEmpty(), "node %d", n.ID())
	}
}

func TestGraph_BackwardGradientArity(t *testing.T) {
	g := autodiff.New()
	x := ops.NewParameter(g, tensor.Scalar(1), sgd)
	broken := g.Add(&silentOp{})
	wire(t, broken, x)

	_, err := g.Forward(broken)
	require.NoError(t, err)
	err = g.Backward(broken)
	assert.True(t, errors.Is(err, autodiff.ErrGradientArity))

	g.ResetGradients()
	assert.Equal(t, 0, broken.GradCount())
}

func TestGraph_SetMode(t *testing.T) {
	g := autodiff.New()
	x := ops.NewInput(g, tensor.VectorShape(2))
	out, err := ops.NewDropout(g, x, ops.MaskConfig{KeepProbability: 0.5})
	require.NoError(t, err)
	mask := out.Inputs()[1]

	assert.Equal(t, autodiff.ModeUnset, mask.Mode())
	g.SetMode(autodiff.ModeInference)
	assert.Equal(t, autodiff.ModeInference, mask.Mode())
	assert.Equal(t, autodiff.ModeUnset, x.Mode(), "inputs are not mode-aware")

	mask.SetMode(autodiff.ModeTrain)
	assert.Equal(t, autodiff.ModeTrain, mask.Mode())
}

func TestGraph_Parameters(t *testing.T) {
	g := autodiff.New()
	ops.NewInput(g, tensor.VectorShape(3))
	w := ops.NewWeight(g, tensor.MatrixShape(2, 3), sgd, nil)
	b := ops.NewBias(g, tensor.VectorShape(2), sgd, 0.5)
	ops.NewAdd(g)

	params := g.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, w.ID(), params[0].ID())
	assert.Equal(t, b.ID(), params[1].ID())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, "bias", b.Name())
	assert.Equal(t, autodiff.TypeParameter, b.Type())
}

func TestNode_ParameterPersistence(t *testing.T) {
	cfg := optim.Config{LearningRate: 0.5, Momentum: optim.MomentumClassic, MomentumDecay: 0.9}

	g := autodiff.New()
	w := ops.NewParameter(g, tensor.Vector([]float32{1, 2}), cfg)
	w.AddGradient(tensor.Parameter(tensor.Vector([]float32{1, -1})))
	require.NoError(t, w.ApplyJacobian())

	rec, err := w.SaveParameters()
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 2.5}, rec.Value.Values())
	assert.Equal(t, 1, rec.State.Steps)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded autodiff.ParameterRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))

	other := ops.NewParameter(autodiff.New(), tensor.Vector([]float32{0, 0}), cfg)
	require.NoError(t, other.LoadParameters(decoded))
	restored, err := other.SaveParameters()
	require.NoError(t, err)
	assert.Equal(t, rec, restored)

	require.NoError(t, other.SetLearningRate(0.1))
	require.NoError(t, other.SetMomentum(tensor.Vector([]float32{0, 0})))
	state, err := other.State()
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), state.LearningRate().Rate())

	sum := ops.NewAdd(g)
	_, err = sum.SaveParameters()
	assert.True(t, errors.Is(err, autodiff.ErrNotLearnable))
	assert.True(t, errors.Is(sum.SetLearningRate(1), autodiff.ErrNotLearnable))
}

func TestTypeAndModeNames(t *testing.T) {
	assert.Equal(t, "expected_response", autodiff.TypeExpectedResponse.String())
	assert.Equal(t, "operation", autodiff.TypeOperation.String())
	assert.Equal(t, "train", autodiff.ModeTrain.String())
	assert.Equal(t, "unset", autodiff.ModeUnset.String())
}
