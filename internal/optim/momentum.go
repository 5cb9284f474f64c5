package optim

import "github.com/born-ml/nodegraph/internal/tensor"

// Momentum smooths parameter updates across steps.
//
// Update rule (classic and Nesterov):
//
//	m = decay * m + update
//	param = param - m
//
// The first update initialises m to the update itself. Nesterov additionally
// offsets the forward read of the parameter by -decay * m (see Lookahead).
type Momentum struct {
	policy MomentumPolicy
	decay  float32
	buffer tensor.Data // None until the first update
}

// NewMomentum creates the momentum state described by cfg.
func NewMomentum(cfg Config) *Momentum {
	cfg = cfg.withDefaults()
	return &Momentum{
		policy: cfg.Momentum,
		decay:  cfg.MomentumDecay,
		buffer: tensor.None(),
	}
}

// Policy returns the momentum policy.
func (m *Momentum) Policy() MomentumPolicy {
	return m.policy
}

// Buffer returns a copy of the momentum buffer.
func (m *Momentum) Buffer() tensor.Data {
	return m.buffer.Clone()
}

// SetBuffer replaces the momentum buffer, e.g. when restoring saved state.
func (m *Momentum) SetBuffer(d tensor.Data) {
	m.buffer = d.Clone()
}

// Apply folds update into the buffer and returns the step to subtract from
// the parameter. Without momentum the update is returned unchanged.
func (m *Momentum) Apply(update tensor.Data) tensor.Data {
	if m.policy == MomentumNone {
		return update
	}
	if m.buffer.IsNone() || m.buffer.Shape() != update.Shape() {
		m.buffer = update.Clone()
		return update.Clone()
	}
	m.buffer.ScaleAssign(m.decay)
	m.buffer.PlusAssign(update)
	return m.buffer.Clone()
}

// Lookahead returns the offset added to the parameter on forward reads.
// It reports false unless the policy is Nesterov and the buffer is populated.
func (m *Momentum) Lookahead() (tensor.Data, bool) {
	if m.policy != MomentumNesterov || m.buffer.IsNone() {
		return tensor.None(), false
	}
	return m.buffer.Scale(-m.decay), true
}
