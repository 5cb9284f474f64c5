// Package nn provides layer building blocks assembled from the autodiff node
// catalog.
//
// This package provides:
//   - Module interface: a wired subgraph with an output node and its parameters
//   - Linear: fully connected layer with optional activation
//   - Dropout, BatchNorm: mode-dependent layers
//   - LossUnit: loss node plus the summation node that penalties attach to
//
// A layer is wired once, at construction. Training steps then run through
// autodiff.Graph.Forward and autodiff.Graph.Backward on the loss unit root.
package nn

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
)

// Module is a wired subgraph.
type Module interface {
	// Output returns the node downstream layers read from.
	Output() autodiff.Node

	// Parameters returns the learnable nodes owned by the module.
	// Returns an empty slice for modules without parameters.
	Parameters() []autodiff.Node
}

// Parameters collects the learnable nodes of several modules in order.
func Parameters(modules ...Module) []autodiff.Node {
	var out []autodiff.Node
	for _, m := range modules {
		out = append(out, m.Parameters()...)
	}
	return out
}

// wire adds inputs to n in order.
func wire(n autodiff.Node, inputs ...autodiff.Node) error {
	for _, in := range inputs {
		if err := n.AddInput(in); err != nil {
			return err
		}
	}
	return nil
}
