package nn

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
)

// Dropout multiplies its input by a Bernoulli mask in train mode and passes
// it through in inference mode.
type Dropout struct {
	output autodiff.Node
}

// NewDropout wires a dropout layer reading from input.
func NewDropout(g *autodiff.Graph, input autodiff.Node, cfg ops.MaskConfig) (*Dropout, error) {
	out, err := ops.NewDropout(g, input, cfg)
	if err != nil {
		return nil, err
	}
	return &Dropout{output: out}, nil
}

// Output returns the masked node.
func (d *Dropout) Output() autodiff.Node {
	return d.output
}

// Parameters returns nil; dropout has no learnable state.
func (d *Dropout) Parameters() []autodiff.Node {
	return nil
}

// BatchNorm normalizes each batch with its own statistics in train mode and
// with the running statistics in inference mode.
type BatchNorm struct {
	norm autodiff.Node
}

// NewBatchNorm wires a normalization layer reading from input.
func NewBatchNorm(g *autodiff.Graph, input autodiff.Node, cfg ops.NormalizationConfig) (*BatchNorm, error) {
	n, err := ops.NewNormalization(g, cfg)
	if err != nil {
		return nil, err
	}
	if err := n.AddInput(input); err != nil {
		return nil, err
	}
	return &BatchNorm{norm: n}, nil
}

// Output returns the normalization node.
func (b *BatchNorm) Output() autodiff.Node {
	return b.norm
}

// Parameters returns nil; running statistics are not learned by gradient.
func (b *BatchNorm) Parameters() []autodiff.Node {
	return nil
}
