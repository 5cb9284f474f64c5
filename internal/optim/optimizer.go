// Package optim implements the per-parameter optimizer state of the graph engine.
//
// Every weight and bias node owns one State. A State combines:
//   - LearningRate: constant, exponential, linear-schedule, or adaptive decay
//   - Momentum: none, classic momentum, or Nesterov look-ahead
//
// State is the only part of a node that survives a gradient reset; it persists
// across training steps and can be saved and restored through Record.
//
// Example usage:
//
//	state := optim.NewState(optim.Config{
//	    LearningRate: 0.05,
//	    Decay:        optim.DecayExponential,
//	    DecayRate:    0.95,
//	    Momentum:     optim.MomentumClassic,
//	})
//
//	// During backpropagation, for an averaged gradient g:
//	value.MinusAssign(state.Step(g))
package optim

import (
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
)

// State is the long-lived optimizer state of one parameter.
type State struct {
	cfg      Config
	rate     *LearningRate
	momentum *Momentum
}

// NewState creates optimizer state from cfg. Zero fields take defaults.
func NewState(cfg Config) *State {
	cfg = cfg.withDefaults()
	return &State{
		cfg:      cfg,
		rate:     NewLearningRate(cfg),
		momentum: NewMomentum(cfg),
	}
}

// Config returns the effective configuration (defaults applied).
func (s *State) Config() Config {
	return s.cfg
}

// LearningRate returns the decay state.
func (s *State) LearningRate() *LearningRate {
	return s.rate
}

// Momentum returns the momentum state.
func (s *State) Momentum() *Momentum {
	return s.momentum
}

// Step turns an averaged gradient into the delta to subtract from the
// parameter, advancing the learning-rate schedule and momentum buffer.
//
// Adaptive policies use UpdateAdaptive + ScaleAdaptive; all others use
// UpdateGlobal.
func (s *State) Step(grad tensor.Data) tensor.Data {
	var update tensor.Data
	if s.rate.Adaptive() {
		s.rate.UpdateAdaptive(grad)
		update = s.rate.ScaleAdaptive(grad)
	} else {
		update = s.rate.UpdateGlobal(grad)
	}
	return s.momentum.Apply(update)
}

// Lookahead returns the Nesterov forward-read offset, if any.
func (s *State) Lookahead() (tensor.Data, bool) {
	return s.momentum.Lookahead()
}

// SetLearningRate overrides the current learning rate.
func (s *State) SetLearningRate(rate float32) {
	s.rate.SetRate(rate)
}

// SetMomentum overrides the momentum buffer.
func (s *State) SetMomentum(buffer tensor.Data) {
	s.momentum.SetBuffer(buffer)
}

// Record is the persistable snapshot of a State.
type Record struct {
	LearningRate    float32     `json:"learning_rate"`
	Steps           int         `json:"steps"`
	Momentum        tensor.Data `json:"momentum"`
	AdaptiveAverage tensor.Data `json:"adaptive_average"`
}

// Record snapshots the state.
func (s *State) Record() Record {
	return Record{
		LearningRate:    s.rate.Rate(),
		Steps:           s.rate.Steps(),
		Momentum:        s.momentum.Buffer(),
		AdaptiveAverage: s.rate.Average(),
	}
}

// Load restores a snapshot produced by Record.
//
// Returns an error if the snapshot carries state the configured policies
// cannot hold (a momentum buffer without momentum, or an adaptive average
// without the adaptive policy).
func (s *State) Load(r Record) error {
	if !r.Momentum.IsNone() && s.momentum.Policy() == MomentumNone {
		return errors.Errorf("optim: momentum buffer %s given but momentum policy is %s",
			r.Momentum.Shape(), s.momentum.Policy())
	}
	if !r.AdaptiveAverage.IsNone() && !s.rate.Adaptive() {
		return errors.Errorf("optim: adaptive average %s given but decay policy is %s",
			r.AdaptiveAverage.Shape(), s.rate.Policy())
	}
	if r.Steps < 0 {
		return errors.Errorf("optim: negative step count %d", r.Steps)
	}
	s.rate.restore(r.LearningRate, r.Steps, r.AdaptiveAverage)
	s.momentum.SetBuffer(r.Momentum)
	return nil
}
