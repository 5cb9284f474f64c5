// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layer building blocks wired from the node catalog.
//
// # Basic Usage
//
//	g := autodiff.New()
//	x := ops.NewInput(g, tensor.VectorShape(4))
//	hidden, _ := nn.NewLinear(g, x, nn.LinearConfig{InFeatures: 4, OutFeatures: 8, Activation: "relu"})
//	out, _ := nn.NewLinear(g, hidden.Output(), nn.LinearConfig{InFeatures: 8, OutFeatures: 3})
//	probs := ops.NewSoftmax(g)
//	_ = probs.AddInput(out.Output())
//
//	unit, _ := nn.NewLossUnit(g, probs, tensor.VectorShape(3), ops.CrossEntropy)
//	_ = unit.Regularize(regularize.Config{L2: 1e-4}, hidden.Weight(), out.Weight())
//
//	g.SetMode(autodiff.ModeTrain)
//	for range epochs {
//	    loss, err := unit.Step(x, batchX, batchY)
//	    ...
//	}
package nn

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/autodiff/ops"
	"github.com/born-ml/nodegraph/internal/nn"
	"github.com/born-ml/nodegraph/internal/tensor"
)

// Module is a wired subgraph with an output node and learnable parameters.
type Module = nn.Module

// Parameters collects the learnable nodes of several modules in order.
func Parameters(modules ...Module) []autodiff.Node {
	return nn.Parameters(modules...)
}

// Layers

// Linear is a fully connected layer: y = act(x·W + b).
type Linear = nn.Linear

// LinearConfig configures a Linear layer.
type LinearConfig = nn.LinearConfig

// NewLinear wires a Linear layer reading from input.
func NewLinear(g *autodiff.Graph, input autodiff.Node, cfg LinearConfig) (*Linear, error) {
	return nn.NewLinear(g, input, cfg)
}

// Dropout masks its input in train mode.
type Dropout = nn.Dropout

// NewDropout wires a dropout layer reading from input.
func NewDropout(g *autodiff.Graph, input autodiff.Node, cfg ops.MaskConfig) (*Dropout, error) {
	return nn.NewDropout(g, input, cfg)
}

// BatchNorm normalizes each feature over the batch.
type BatchNorm = nn.BatchNorm

// NewBatchNorm wires a normalization layer reading from input.
func NewBatchNorm(g *autodiff.Graph, input autodiff.Node, cfg ops.NormalizationConfig) (*BatchNorm, error) {
	return nn.NewBatchNorm(g, input, cfg)
}

// Loss

// LossUnit is a loss node plus the summation root penalties attach to.
type LossUnit = nn.LossUnit

// NewLossUnit wires a loss between prediction and a new expected-response
// node of the given shape.
func NewLossUnit(g *autodiff.Graph, prediction autodiff.Node, shape tensor.Shape, kind ops.LossKind) (*LossUnit, error) {
	return nn.NewLossUnit(g, prediction, shape, kind)
}
