package nn

import (
	"math/rand/v2"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// LinearConfig configures a Linear layer.
type LinearConfig struct {
	InFeatures  int    `yaml:"in_features" json:"in_features"`
	OutFeatures int    `yaml:"out_features" json:"out_features"`
	Activation  string `yaml:"activation" json:"activation"` // Registered name; empty skips the activation node

	BiasInit  float32      `yaml:"bias_init" json:"bias_init"`
	Optimizer optim.Config `yaml:"optimizer" json:"optimizer"`

	// Src seeds the weight initialisation; nil uses the global source.
	Src rand.Source `yaml:"-" json:"-"`
}

// Validate checks the layer dimensions and activation name.
func (c LinearConfig) Validate() error {
	if c.InFeatures <= 0 || c.OutFeatures <= 0 {
		return errors.Errorf("nn: linear features must be > 0, got %dx%d", c.InFeatures, c.OutFeatures)
	}
	if c.Activation != "" {
		if _, err := ops.LookupActivation(c.Activation); err != nil {
			return err
		}
	}
	return c.Optimizer.Validate()
}

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = act(x·W + b)
// where:
//   - x is the input vector with shape [in_features]
//   - W is the weight matrix with shape [in_features, out_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output vector with shape [out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to BiasInit.
type Linear struct {
	weight  autodiff.Node
	bias    autodiff.Node
	product autodiff.Node
	sum     autodiff.Node
	output  autodiff.Node
}

// NewLinear wires a Linear layer reading from input.
//
// Example:
//
//	g := autodiff.New()
//	x := ops.NewInput(g, tensor.VectorShape(3))
//	layer, err := nn.NewLinear(g, x, nn.LinearConfig{InFeatures: 3, OutFeatures: 2, Activation: "relu"})
func NewLinear(g *autodiff.Graph, input autodiff.Node, cfg LinearConfig) (*Linear, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Linear{
		weight:  ops.NewWeight(g, tensor.MatrixShape(cfg.InFeatures, cfg.OutFeatures), cfg.Optimizer, cfg.Src),
		bias:    ops.NewBias(g, tensor.VectorShape(cfg.OutFeatures), cfg.Optimizer, cfg.BiasInit),
		product: ops.NewMatrixMultiply(g),
		sum:     ops.NewAdd(g),
	}
	if err := wire(l.product, input, l.weight); err != nil {
		return nil, errors.WithMessage(err, "nn: linear product")
	}
	if err := wire(l.sum, l.product, l.bias); err != nil {
		return nil, errors.WithMessage(err, "nn: linear bias")
	}
	l.output = l.sum

	if cfg.Activation != "" {
		act, err := ops.NewActivation(g, cfg.Activation)
		if err != nil {
			return nil, err
		}
		if err := act.AddInput(l.sum); err != nil {
			return nil, errors.WithMessage(err, "nn: linear activation")
		}
		l.output = act
	}
	return l, nil
}

// Output returns the activation node, or the bias sum without activation.
func (l *Linear) Output() autodiff.Node {
	return l.output
}

// Parameters returns the weight and bias.
func (l *Linear) Parameters() []autodiff.Node {
	return []autodiff.Node{l.weight, l.bias}
}

// Weight returns the weight node.
func (l *Linear) Weight() autodiff.Node {
	return l.weight
}

// Bias returns the bias node.
func (l *Linear) Bias() autodiff.Node {
	return l.bias
}

// PreActivation returns x·W + b.
func (l *Linear) PreActivation() autodiff.Node {
	return l.sum
}
