package ops

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// Normalization defaults.
const (
	DefaultNormMomentum = 0.9
	DefaultNormEpsilon  = 1e-5
)

// NormalizationConfig configures a batch normalization node.
type NormalizationConfig struct {
	// Momentum weights the previous running statistics:
	// running = Momentum·running + (1-Momentum)·batch.
	Momentum float32 `yaml:"momentum" json:"momentum"`

	// Epsilon is added to the variance before the square root.
	Epsilon float32 `yaml:"epsilon" json:"epsilon"`
}

func (c NormalizationConfig) withDefaults() NormalizationConfig {
	if c.Momentum == 0 {
		c.Momentum = DefaultNormMomentum
	}
	if c.Epsilon == 0 {
		c.Epsilon = DefaultNormEpsilon
	}
	return c
}

// Validate checks the configuration ranges.
func (c NormalizationConfig) Validate() error {
	if c.Momentum < 0 || c.Momentum >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "normalization momentum %g outside [0, 1)", c.Momentum)
	}
	if c.Epsilon < 0 {
		return errors.Wrapf(ErrInvalidConfig, "normalization epsilon %g is negative", c.Epsilon)
	}
	return nil
}

// NormalizationOp standardises every feature over the batch:
//
//	y = (x - μ) / √(σ² + ε)
//
// Train mode uses the batch statistics and folds them into exponential
// running averages; inference mode uses the running averages.
//
// Backward pass scales the upstream gradient by 1/√(σ² + ε) only. The mean
// and variance correction terms of the full batch-norm Jacobian are omitted.
type NormalizationOp struct {
	base
	cfg  NormalizationConfig
	mode autodiff.Mode

	runningMean tensor.Data
	runningVar  tensor.Data
	invStd      tensor.Data // scale used by the last forward pass
}

// NewNormalization registers a batch normalization node.
func NewNormalization(g *autodiff.Graph, cfg NormalizationConfig) (autodiff.Node, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return autodiff.Node{}, err
	}
	return g.Add(&NormalizationOp{
		base: base{name: "normalization", typ: autodiff.TypeOperation, arity: 1},
		cfg:  cfg,
	}), nil
}

// SetMode selects batch or running statistics.
func (op *NormalizationOp) SetMode(m autodiff.Mode) {
	op.mode = m
}

// Mode returns the current mode.
func (op *NormalizationOp) Mode() autodiff.Mode {
	return op.mode
}

// RunningStats returns the running mean and variance. Both are None before
// the first forward pass.
func (op *NormalizationOp) RunningStats() (mean, variance tensor.Data) {
	return op.runningMean, op.runningVar
}

// Forward standardises the input.
func (op *NormalizationOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	x := ctx.Input(0)
	if x.IsEmpty() || x.HasNone() {
		return tensor.Empty(), nil
	}
	_, shape := x.Dim()
	if op.runningMean.IsNone() || op.runningMean.Shape() != shape {
		op.runningMean = tensor.Zeros(shape)
		op.runningVar = tensor.Full(shape, 1)
	}

	var mean, variance tensor.Data
	switch op.mode {
	case autodiff.ModeTrain:
		mean, variance = batchStats(x.Items())
		op.runningMean.ScaleAssign(op.cfg.Momentum)
		op.runningMean.PlusAssign(mean.Scale(1 - op.cfg.Momentum))
		op.runningVar.ScaleAssign(op.cfg.Momentum)
		op.runningVar.PlusAssign(variance.Scale(1 - op.cfg.Momentum))
	case autodiff.ModeInference:
		mean, variance = op.runningMean, op.runningVar
	default:
		return tensor.Empty(), errors.Wrap(autodiff.ErrModeUnset, op.Name())
	}

	eps := op.cfg.Epsilon
	op.invStd = variance.Map(func(v float32) float32 { return v + eps }).Sqrt().Map(func(v float32) float32 { return 1 / v })
	return x.Minus(tensor.Parameter(mean)).Times(tensor.Parameter(op.invStd)), nil
}

// Backward scales grad by the inverse standard deviation.
func (op *NormalizationOp) Backward(_ *autodiff.Context, grad tensor.Container) ([]tensor.Container, error) {
	if op.invStd.IsNone() {
		return []tensor.Container{tensor.Empty()}, nil
	}
	return []tensor.Container{grad.Times(tensor.Parameter(op.invStd))}, nil
}

// batchStats returns the per-feature mean and biased variance of items.
func batchStats(items []tensor.Data) (mean, variance tensor.Data) {
	n := float32(len(items))
	mean = items[0].ZerosLike()
	for _, d := range items {
		mean.PlusAssign(d)
	}
	mean.ScaleAssign(1 / n)

	variance = mean.ZerosLike()
	for _, d := range items {
		variance.PlusAssign(d.Minus(mean).Square())
	}
	variance.ScaleAssign(1 / n)
	return mean, variance
}
