package optim

import (
	"github.com/born-ml/nodegraph/internal/tensor"
)

// LearningRate is the decay half of a parameter's optimizer state.
//
// Non-adaptive policies go through UpdateGlobal, which scales the gradient by
// the current rate and then advances the schedule. The adaptive policy keeps a
// per-element moving average of the squared gradient; callers feed it with
// UpdateAdaptive and scale with ScaleAdaptive. The two paths are mutually
// exclusive.
type LearningRate struct {
	policy  DecayPolicy
	initial float32
	rate    float32
	end     float32
	factor  float32
	horizon int
	step    int

	beta    float32
	epsilon float32
	average tensor.Data // None until the first adaptive update
}

// NewLearningRate creates the decay state described by cfg.
func NewLearningRate(cfg Config) *LearningRate {
	cfg = cfg.withDefaults()
	return &LearningRate{
		policy:  cfg.Decay,
		initial: cfg.LearningRate,
		rate:    cfg.LearningRate,
		end:     cfg.EndRate,
		factor:  cfg.DecayRate,
		horizon: cfg.Horizon,
		beta:    cfg.AdaptiveDecay,
		epsilon: cfg.Epsilon,
		average: tensor.None(),
	}
}

// Policy returns the decay policy.
func (lr *LearningRate) Policy() DecayPolicy {
	return lr.policy
}

// Adaptive reports whether the adaptive path is in use.
func (lr *LearningRate) Adaptive() bool {
	return lr.policy == DecayAdaptive
}

// Rate returns the current (global) rate.
func (lr *LearningRate) Rate() float32 {
	return lr.rate
}

// SetRate overrides the current rate, e.g. when restoring saved state.
func (lr *LearningRate) SetRate(rate float32) {
	lr.rate = rate
}

// Steps returns the number of updates applied so far.
func (lr *LearningRate) Steps() int {
	return lr.step
}

// Average returns the adaptive moving average of squared gradients
// (None before the first adaptive update).
func (lr *LearningRate) Average() tensor.Data {
	return lr.average.Clone()
}

// UpdateGlobal returns rate * grad and advances the decay schedule.
func (lr *LearningRate) UpdateGlobal(grad tensor.Data) tensor.Data {
	update := grad.Scale(lr.rate)
	lr.advance()
	return update
}

// UpdateAdaptive folds grad² into the moving average.
//
// The first call initialises the average to grad² directly.
func (lr *LearningRate) UpdateAdaptive(grad tensor.Data) {
	sq := grad.Square()
	if lr.average.IsNone() || lr.average.Shape() != sq.Shape() {
		lr.average = sq
		lr.step++
		return
	}
	lr.average.ScaleAssign(lr.beta)
	lr.average.PlusAssign(sq.Scale(1 - lr.beta))
	lr.step++
}

// ScaleAdaptive returns grad * rate / sqrt(average + epsilon).
func (lr *LearningRate) ScaleAdaptive(grad tensor.Data) tensor.Data {
	denom := lr.average.Plus(tensor.Scalar(lr.epsilon)).Sqrt()
	return grad.Scale(lr.rate).Divide(denom)
}

// advance moves the non-adaptive schedule forward by one update.
func (lr *LearningRate) advance() {
	lr.step++
	switch lr.policy {
	case DecayExponential:
		lr.rate *= lr.factor
	case DecayLinear:
		if lr.step >= lr.horizon {
			lr.rate = lr.end
			return
		}
		progress := float32(lr.step) / float32(lr.horizon)
		lr.rate = lr.initial + (lr.end-lr.initial)*progress
	}
}

// restore sets the schedule position and adaptive average from saved state.
func (lr *LearningRate) restore(rate float32, step int, average tensor.Data) {
	lr.rate = rate
	lr.step = step
	lr.average = average.Clone()
}
