package ops

import (
	"math/rand/v2"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultKeepProbability is the keep probability used when none is set.
const DefaultKeepProbability = 0.5

// MaskConfig configures a dropout mask node.
type MaskConfig struct {
	// KeepProbability is the probability of keeping each element, in (0, 1].
	KeepProbability float32 `yaml:"keep_probability" json:"keep_probability"`

	// Seed makes the mask sequence reproducible. Zero uses the global source.
	Seed uint64 `yaml:"seed" json:"seed"`
}

func (c MaskConfig) withDefaults() MaskConfig {
	if c.KeepProbability == 0 {
		c.KeepProbability = DefaultKeepProbability
	}
	return c
}

// Validate checks the configuration ranges.
func (c MaskConfig) Validate() error {
	if c.KeepProbability <= 0 || c.KeepProbability > 1 {
		return errors.Wrapf(ErrInvalidConfig, "keep probability %g outside (0, 1]", c.KeepProbability)
	}
	return nil
}

// MaskOp produces a dropout mask with the shape and example count of its
// input. The input value itself is not read.
//
// Train mode samples Bernoulli(keep) / keep per element, so the expected
// value of the mask is 1. Inference mode outputs ones.
//
// The mask is applied by a MultiplyOp, which carries the gradient through
// the mask. MaskOp itself passes a zero gradient to its input.
type MaskOp struct {
	base
	cfg  MaskConfig
	mode autodiff.Mode
	dist distuv.Bernoulli
}

// NewMask registers a dropout mask node.
func NewMask(g *autodiff.Graph, cfg MaskConfig) (autodiff.Node, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return autodiff.Node{}, err
	}
	op := &MaskOp{
		base: base{name: "mask", typ: autodiff.TypeOperation, arity: 1},
		cfg:  cfg,
		dist: distuv.Bernoulli{P: float64(cfg.KeepProbability)},
	}
	if cfg.Seed != 0 {
		op.dist.Src = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	}
	return g.Add(op), nil
}

// NewDropout wires input through a mask: output = input ⊙ mask.
// It returns the multiply node.
func NewDropout(g *autodiff.Graph, input autodiff.Node, cfg MaskConfig) (autodiff.Node, error) {
	mask, err := NewMask(g, cfg)
	if err != nil {
		return autodiff.Node{}, err
	}
	if err := mask.AddInput(input); err != nil {
		return autodiff.Node{}, err
	}
	out := NewMultiply(g)
	if err := out.AddInput(input); err != nil {
		return autodiff.Node{}, err
	}
	if err := out.AddInput(mask); err != nil {
		return autodiff.Node{}, err
	}
	return out, nil
}

// SetMode selects sampling (train) or pass-through (inference).
func (op *MaskOp) SetMode(m autodiff.Mode) {
	op.mode = m
}

// Mode returns the current mode.
func (op *MaskOp) Mode() autodiff.Mode {
	return op.mode
}

// Forward samples a new mask.
func (op *MaskOp) Forward(ctx *autodiff.Context) (tensor.Container, error) {
	switch op.mode {
	case autodiff.ModeTrain:
		scale := 1 / op.cfg.KeepProbability
		return ctx.Input(0).Map(func(d tensor.Data) tensor.Data {
			return d.Map(func(float32) float32 {
				return float32(op.dist.Rand()) * scale
			})
		}), nil
	case autodiff.ModeInference:
		return ones(ctx.Input(0)), nil
	default:
		return tensor.Empty(), errors.Wrap(autodiff.ErrModeUnset, op.Name())
	}
}

// Backward returns a zero gradient so the input's fan-in counter completes.
func (op *MaskOp) Backward(ctx *autodiff.Context, _ tensor.Container) ([]tensor.Container, error) {
	return []tensor.Container{zeros(ctx.Input(0))}, nil
}
