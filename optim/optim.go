// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the per-parameter optimizer state.
//
// # Overview
//
// Every weight and bias node owns a State combining:
//   - a learning-rate decay policy: constant, exponential, linear, adaptive
//   - a momentum policy: none, momentum, nesterov
//
// The update runs inside the parameter's own backward step; there is no
// separate optimizer object stepping a parameter list.
//
// # Configuration
//
//	cfg, err := optim.LoadConfig(strings.NewReader(`
//	learning_rate: 0.05
//	decay: exponential
//	decay_rate: 0.95
//	momentum: nesterov
//	`))
package optim

import (
	"io"

	"github.com/born-ml/nodegraph/internal/optim"
)

// Config holds the optimizer settings of one parameter node.
type Config = optim.Config

// DecayPolicy selects how the learning rate evolves between updates.
type DecayPolicy = optim.DecayPolicy

// Learning-rate decay policies.
const (
	DecayConstant    = optim.DecayConstant
	DecayExponential = optim.DecayExponential
	DecayLinear      = optim.DecayLinear
	DecayAdaptive    = optim.DecayAdaptive
)

// MomentumPolicy selects how updates are smoothed across steps.
type MomentumPolicy = optim.MomentumPolicy

// Momentum policies.
const (
	MomentumNone     = optim.MomentumNone
	MomentumClassic  = optim.MomentumClassic
	MomentumNesterov = optim.MomentumNesterov
)

// State is the optimizer state owned by one parameter node.
type State = optim.State

// Record is the persistable form of a State.
type Record = optim.Record

// DefaultConfig returns plain SGD with a constant rate of 0.01.
func DefaultConfig() Config {
	return optim.DefaultConfig()
}

// LoadConfig decodes and validates a YAML optimizer configuration.
func LoadConfig(r io.Reader) (Config, error) {
	return optim.LoadConfig(r)
}

// NewState creates optimizer state, filling defaults into cfg.
func NewState(cfg Config) *State {
	return optim.NewState(cfg)
}
