package regularize_test

import (
	"os"
	"testing"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/regularize"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

// With a unit learning rate the applied step is the raw gradient.
var sgd = optim.Config{LearningRate: 1}

var w0 = tensor.Vector([]float32{1, -2, 0.5})

func gradient(t *testing.T, before tensor.Data, n autodiff.Node) []float64 {
	t.Helper()
	rec, err := n.SaveParameters()
	require.NoError(t, err)
	return before.Minus(rec.Value).Float64s()
}

func run(t *testing.T, g *autodiff.Graph, root autodiff.Node) float32 {
	t.Helper()
	out, err := g.Forward(root)
	require.NoError(t, err)
	require.NoError(t, g.Backward(root))
	v, ok := out.Single().ScalarValue()
	require.True(t, ok)
	return v
}

func TestAttach_L1(t *testing.T) {
	g := autodiff.New()
	w := ops.NewParameter(g, w0, sgd)
	sum := ops.NewAdd(g)

	_, err := regularize.Attach(g, sum, w, regularize.Penalty{Kind: regularize.L1, Alpha: 0.1})
	require.NoError(t, err)

	assert.InDelta(t, 0.35, run(t, g, sum), 1e-6)
	assert.InDeltaSlice(t, []float64{0.1, -0.1, 0.1}, gradient(t, w0, w), 1e-6)
}

func TestAttach_L2(t *testing.T) {
	g := autodiff.New()
	w := ops.NewParameter(g, w0, sgd)
	sum := ops.NewAdd(g)

	_, err := regularize.Attach(g, sum, w, regularize.Penalty{Kind: regularize.L2, Alpha: 0.1})
	require.NoError(t, err)

	// α·Σw² = 0.1·(1 + 4 + 0.25)
	assert.InDelta(t, 0.525, run(t, g, sum), 1e-6)
	assert.InDeltaSlice(t, []float64{0.2, -0.4, 0.1}, gradient(t, w0, w), 1e-6)
}

// TestAttach_SharesWavefront checks that the penalty gradient and the
// primary loss gradient reach the weight in the same backward pass.
func TestAttach_SharesWavefront(t *testing.T) {
	g := autodiff.New()
	w := ops.NewParameter(g, w0, sgd)
	primary := ops.NewElementSum(g)
	require.NoError(t, primary.AddInput(w))
	sum := ops.NewAdd(g)
	require.NoError(t, sum.AddInput(primary))

	_, err := regularize.Attach(g, sum, w, regularize.Penalty{Kind: regularize.L2, Alpha: 0.5})
	require.NoError(t, err)
	assert.Len(t, w.Outputs(), 2)

	// Σw + 0.5·Σw² = -0.5 + 2.625
	assert.InDelta(t, 2.125, run(t, g, sum), 1e-6)
	// 1 + 2·0.5·w
	assert.InDeltaSlice(t, []float64{2, -1, 1.5}, gradient(t, w0, w), 1e-6)
	assert.Zero(t, w.GradCount())
}

func TestAttach_Errors(t *testing.T) {
	g := autodiff.New()
	w := ops.NewParameter(g, w0, sgd)

	_, err := regularize.Attach(g, ops.NewMultiply(g), w, regularize.Penalty{Kind: regularize.L1, Alpha: 0.1})
	assert.True(t, errors.Is(err, regularize.ErrNotSummation), "got %v", err)

	sum := ops.NewAdd(g)
	_, err = regularize.Attach(g, sum, w, regularize.Penalty{Kind: regularize.L2, Alpha: -1})
	assert.Error(t, err)

	_, err = regularize.Attach(g, sum, w, regularize.Penalty{Alpha: 1})
	assert.Error(t, err)

	other := autodiff.New()
	foreign := ops.NewParameter(other, w0, sgd)
	_, err = regularize.Attach(g, sum, foreign, regularize.Penalty{Kind: regularize.L1, Alpha: 1})
	assert.True(t, errors.Is(err, autodiff.ErrForeignNode), "got %v", err)
}

func TestConfig_Apply(t *testing.T) {
	g := autodiff.New()
	a := ops.NewParameter(g, w0, sgd)
	b := ops.NewParameter(g, tensor.Scalar(3), sgd)
	sum := ops.NewAdd(g)

	cfg := regularize.Config{L1: 0.1, L2: 0.05}
	require.Len(t, cfg.Penalties(), 2)
	require.NoError(t, cfg.Apply(g, sum, a, b))
	assert.Len(t, sum.Inputs(), 4)

	run(t, g, sum)
	// α₁·sign(w) + 2·α₂·w
	assert.InDeltaSlice(t, []float64{0.2, -0.3, 0.15}, gradient(t, w0, a), 1e-6)
	assert.InDeltaSlice(t, []float64{0.4}, gradient(t, tensor.Scalar(3), b), 1e-6)

	assert.Empty(t, regularize.Config{}.Penalties())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "l1", regularize.L1.String())
	assert.Equal(t, "l2", regularize.L2.String())
	assert.Equal(t, "unknown", regularize.Kind(9).String())
}
