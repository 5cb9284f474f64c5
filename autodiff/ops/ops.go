// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides the node catalog of package autodiff.
//
// Sources: Input, ExpectedResponse, Constant, Weight, Bias, Parameter.
// Operations: Add, Multiply, MatrixMultiply, Activation, Softmax, Loss,
// Normalization, Mask (dropout), ElementSum, Square, AbsoluteValue.
package ops

import (
	"math/rand/v2"

	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
)

// Configuration errors.
var (
	ErrUnknownActivation = ops.ErrUnknownActivation
	ErrUnknownLoss       = ops.ErrUnknownLoss
	ErrInvalidConfig     = ops.ErrInvalidConfig
)

// Sources

// NewInput registers an input node accepting data of the given shape.
func NewInput(g *autodiff.Graph, shape tensor.Shape) autodiff.Node {
	return ops.NewInput(g, shape)
}

// NewExpectedResponse registers the target input of a loss.
func NewExpectedResponse(g *autodiff.Graph, shape tensor.Shape) autodiff.Node {
	return ops.NewExpectedResponse(g, shape)
}

// NewConstant registers a fixed value shared by every example.
func NewConstant(g *autodiff.Graph, d tensor.Data) autodiff.Node {
	return ops.NewConstant(g, d)
}

// NewWeight registers a Xavier-initialised weight. A nil src uses the
// global source.
func NewWeight(g *autodiff.Graph, shape tensor.Shape, cfg optim.Config, src rand.Source) autodiff.Node {
	return ops.NewWeight(g, shape, cfg, src)
}

// NewBias registers a bias with every element set to init.
func NewBias(g *autodiff.Graph, shape tensor.Shape, cfg optim.Config, init float32) autodiff.Node {
	return ops.NewBias(g, shape, cfg, init)
}

// NewParameter registers a learnable node holding value.
func NewParameter(g *autodiff.Graph, value tensor.Data, cfg optim.Config) autodiff.Node {
	return ops.NewParameter(g, value, cfg)
}

// Arithmetic

// NewAdd registers an n-ary summation node.
func NewAdd(g *autodiff.Graph) autodiff.Node {
	return ops.NewAdd(g)
}

// NewMultiply registers an elementwise product node.
func NewMultiply(g *autodiff.Graph) autodiff.Node {
	return ops.NewMultiply(g)
}

// NewMatrixMultiply registers a matrix product node.
func NewMatrixMultiply(g *autodiff.Graph) autodiff.Node {
	return ops.NewMatrixMultiply(g)
}

// NewElementSum registers a full-reduction node.
func NewElementSum(g *autodiff.Graph) autodiff.Node {
	return ops.NewElementSum(g)
}

// NewSquare registers an elementwise square node.
func NewSquare(g *autodiff.Graph) autodiff.Node {
	return ops.NewSquare(g)
}

// NewAbsoluteValue registers an elementwise absolute value node.
func NewAbsoluteValue(g *autodiff.Graph) autodiff.Node {
	return ops.NewAbsoluteValue(g)
}

// Activations

// Activation is a named elementwise function with its derivative.
type Activation = ops.Activation

// RegisterActivation adds or replaces a named activation.
func RegisterActivation(a Activation) error {
	return ops.RegisterActivation(a)
}

// LookupActivation returns a registered activation.
func LookupActivation(name string) (Activation, error) {
	return ops.LookupActivation(name)
}

// Activations returns the registered names, sorted.
func Activations() []string {
	return ops.Activations()
}

// NewActivation registers an activation node by name.
func NewActivation(g *autodiff.Graph, name string) (autodiff.Node, error) {
	return ops.NewActivation(g, name)
}

// NewSoftmax registers a softmax node.
func NewSoftmax(g *autodiff.Graph) autodiff.Node {
	return ops.NewSoftmax(g)
}

// Losses

// LossKind selects the error function of a loss node.
type LossKind = ops.LossKind

// Loss functions.
const (
	CrossEntropy       = ops.CrossEntropy
	BinaryCrossEntropy = ops.BinaryCrossEntropy
	MeanSquaredError   = ops.MeanSquaredError
)

// ParseLossKind resolves a loss function name.
func ParseLossKind(name string) (LossKind, error) {
	return ops.ParseLossKind(name)
}

// NewLoss registers a loss node.
func NewLoss(g *autodiff.Graph, kind LossKind) autodiff.Node {
	return ops.NewLoss(g, kind)
}

// Mode-aware nodes

// NormalizationConfig configures a batch normalization node.
type NormalizationConfig = ops.NormalizationConfig

// NewNormalization registers a batch normalization node.
func NewNormalization(g *autodiff.Graph, cfg NormalizationConfig) (autodiff.Node, error) {
	return ops.NewNormalization(g, cfg)
}

// MaskConfig configures a dropout mask node.
type MaskConfig = ops.MaskConfig

// NewMask registers a dropout mask node.
func NewMask(g *autodiff.Graph, cfg MaskConfig) (autodiff.Node, error) {
	return ops.NewMask(g, cfg)
}

// NewDropout wires input through a mask and returns the product node.
func NewDropout(g *autodiff.Graph, input autodiff.Node, cfg MaskConfig) (autodiff.Node, error) {
	return ops.NewDropout(g, input, cfg)
}
