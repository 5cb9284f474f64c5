// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package regularize attaches L1/L2 weight penalties to a loss as graph
// subgraphs, so penalty gradients flow through the same backward pass as
// the loss.
package regularize

import (
	"github.com/born-ml/nodegraph/internal/autodiff"
	"github.com/born-ml/nodegraph/internal/regularize"
)

// ErrNotSummation is returned when a penalty target is not an Add node.
var ErrNotSummation = regularize.ErrNotSummation

// Kind selects the penalty norm.
type Kind = regularize.Kind

// Penalty kinds.
const (
	L1 = regularize.L1
	L2 = regularize.L2
)

// Penalty is one regularization term.
type Penalty = regularize.Penalty

// Config holds the penalty strengths of a model.
type Config = regularize.Config

// Attach builds the penalty subgraph for weight and appends it to sum.
func Attach(g *autodiff.Graph, sum, weight autodiff.Node, p Penalty) (autodiff.Node, error) {
	return regularize.Attach(g, sum, weight, p)
}

// AttachAll attaches p to every weight.
func AttachAll(g *autodiff.Graph, sum autodiff.Node, weights []autodiff.Node, p Penalty) ([]autodiff.Node, error) {
	return regularize.AttachAll(g, sum, weights, p)
}
