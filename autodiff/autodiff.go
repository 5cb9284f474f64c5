// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over an
// explicit computation graph.
//
// A Graph owns its nodes; a Node is a handle used to wire edges, set data,
// and drive the gradient protocol. Node kinds live in package
// autodiff/ops.
//
// Example:
//
//	import (
//	    "github.com/born-ml/nodegraph/autodiff"
//	    "github.com/born-ml/nodegraph/autodiff/ops"
//	    "github.com/born-ml/nodegraph/optim"
//	    "github.com/born-ml/nodegraph/tensor"
//	)
//
//	func main() {
//	    g := autodiff.New()
//	    x := ops.NewInput(g, tensor.VectorShape(2))
//	    w := ops.NewParameter(g, tensor.Vector([]float32{0.5, -1}), optim.DefaultConfig())
//	    y := ops.NewMultiply(g)
//	    _ = y.AddInput(x)
//	    _ = y.AddInput(w)
//	    sum := ops.NewElementSum(g)
//	    _ = sum.AddInput(y)
//
//	    _ = x.SetData(tensor.Inference(tensor.Vector([]float32{1, 2})))
//	    out, _ := g.Forward(sum)
//	    _ = g.Backward(sum) // updates w
//	}
package autodiff

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"go.uber.org/zap"
)

// Graph owns every node of one network.
type Graph = autodiff.Graph

// Node is a handle to a vertex of a Graph.
type Node = autodiff.Node

// NodeID addresses a node inside its Graph.
type NodeID = autodiff.NodeID

// Option configures a Graph.
type Option = autodiff.Option

// Operator implements the kind-specific rules of a node.
type Operator = autodiff.Operator

// Context is the view of a node handed to its Operator.
type Context = autodiff.Context

// ParameterRecord is the persistable state of a learnable node.
type ParameterRecord = autodiff.ParameterRecord

// Type is the role tag of a node.
type Type = autodiff.Type

// Node roles.
const (
	TypeNone             = autodiff.TypeNone
	TypeParameter        = autodiff.TypeParameter
	TypeInput            = autodiff.TypeInput
	TypeExpectedResponse = autodiff.TypeExpectedResponse
	TypeOperation        = autodiff.TypeOperation
)

// Mode is the network mode of mode-aware nodes.
type Mode = autodiff.Mode

// Network modes.
const (
	ModeUnset     = autodiff.ModeUnset
	ModeTrain     = autodiff.ModeTrain
	ModeInference = autodiff.ModeInference
)

// Structural errors.
var (
	ErrArity          = autodiff.ErrArity
	ErrMissingInput   = autodiff.ErrMissingInput
	ErrNotSettable    = autodiff.ErrNotSettable
	ErrModeUnset      = autodiff.ErrModeUnset
	ErrCycle          = autodiff.ErrCycle
	ErrForeignNode    = autodiff.ErrForeignNode
	ErrGradientArity  = autodiff.ErrGradientArity
	ErrNotLearnable   = autodiff.ErrNotLearnable
	ErrInvalidHandle  = autodiff.ErrInvalidHandle
	ErrUnknownOperand = autodiff.ErrUnknownOperand
)

// New creates an empty graph.
func New(opts ...Option) *Graph {
	return autodiff.New(opts...)
}

// WithLogger sets the logger used for node diagnostics.
func WithLogger(l *zap.Logger) Option {
	return autodiff.WithLogger(l)
}
