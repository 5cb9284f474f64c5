package autodiff

import (
	"github.com/born-ml/nodegraph/internal/optim"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Node is a handle to a vertex of a Graph.
//
// Handles are small values; copying one does not copy the vertex. All state
// lives in the graph arena, so a handle never aliases another node's state.
type Node struct {
	g  *Graph
	id NodeID
}

// ID returns the arena index.
func (n Node) ID() NodeID {
	return n.id
}

// Graph returns the owning graph.
func (n Node) Graph() *Graph {
	return n.g
}

func (n Node) valid() bool {
	return n.g != nil && n.id >= 0 && int(n.id) < len(n.g.nodes)
}

func (n Node) slot() *node {
	return n.g.nodes[n.id]
}

// Type returns the cached role tag.
func (n Node) Type() Type {
	return n.slot().typ
}

// Name returns the operator kind.
func (n Node) Name() string {
	return n.slot().op.Name()
}

// Operator returns the node's operator.
func (n Node) Operator() Operator {
	return n.slot().op
}

// Inputs returns the nodes this one reads, in order.
func (n Node) Inputs() []Node {
	return n.handles(n.slot().inputs)
}

// Outputs returns the consumers of this node.
func (n Node) Outputs() []Node {
	return n.handles(n.slot().outputs)
}

func (n Node) handles(ids []NodeID) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{g: n.g, id: id}
	}
	return out
}

// AddInput wires input as the next input of n and registers n as a consumer
// of input.
//
// Fixed-arity kinds reject excess inputs: the wiring is left unchanged, a
// warning is logged, and ErrArity is returned. Edges that would create a
// cycle or cross graphs are rejected the same way.
func (n Node) AddInput(input Node) error {
	if !n.valid() || !input.valid() {
		return ErrInvalidHandle
	}
	if n.g != input.g {
		return ErrForeignNode
	}

	self := n.slot()
	if arity := self.op.Arity(); arity != ArityVariadic && len(self.inputs) >= arity {
		n.g.logger.Warn("input rejected",
			zap.Int("node", int(n.id)), zap.String("kind", self.op.Name()),
			zap.Int("arity", arity), zap.Int("input", int(input.id)))
		return errors.Wrapf(ErrArity, "%s accepts %d inputs", self.op.Name(), arity)
	}
	if input.dependsOn(n.id) {
		n.g.logger.Warn("input rejected: cycle",
			zap.Int("node", int(n.id)), zap.Int("input", int(input.id)))
		return errors.Wrapf(ErrCycle, "node %d already depends on node %d", input.id, n.id)
	}

	input.slot().outputs = append(input.slot().outputs, n.id)
	self.inputs = append(self.inputs, input.id)
	return nil
}

// dependsOn reports whether target is reachable from n through input edges
// (n itself included).
func (n Node) dependsOn(target NodeID) bool {
	seen := make(map[NodeID]bool)
	stack := []NodeID{n.id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, n.g.nodes[id].inputs...)
	}
	return false
}

// ApplyOperation evaluates every input recursively and then this node.
//
// A node with fan-out greater than one is recomputed once per consumer; use
// Graph.Forward for the memoised equivalent.
func (n Node) ApplyOperation() error {
	if !n.valid() {
		return ErrInvalidHandle
	}
	return n.g.forward(n.id, 0)
}

// Data returns the cached forward value.
func (n Node) Data() tensor.Container {
	return n.slot().value
}

// SetData injects an externally supplied value.
//
// Returns ErrNotSettable for pure operation nodes.
func (n Node) SetData(c tensor.Container) error {
	if !n.valid() {
		return ErrInvalidHandle
	}
	s, ok := n.slot().op.(Settable)
	if !ok {
		return errors.Wrapf(ErrNotSettable, "node %d (%s)", n.id, n.Name())
	}
	ctx := &Context{g: n.g, id: n.id}
	if err := s.SetData(ctx, c); err != nil {
		return err
	}
	value, err := n.slot().op.Forward(ctx)
	if err != nil {
		return err
	}
	n.slot().value = value
	return nil
}

// AddGradient sums c into the accumulator and increments the fan-in counter.
func (n Node) AddGradient(c tensor.Container) {
	n.slot().addGradient(c)
}

// Gradient returns the accumulated gradient.
func (n Node) Gradient() tensor.Container {
	return n.slot().grad
}

// GradCount returns how many consumers have contributed this step.
func (n Node) GradCount() int {
	return n.slot().gradCount
}

// ShouldProcessBackprop reports whether every consumer has contributed.
func (n Node) ShouldProcessBackprop() bool {
	return n.slot().ready()
}

// ApplyJacobian resets the fan-in counter, pushes local gradients into every
// input, and recurses into each input whose gradient is complete.
func (n Node) ApplyJacobian() error {
	if !n.valid() {
		return ErrInvalidHandle
	}
	return n.g.applyJacobian(n.id)
}

// SetMode sets the network mode on mode-aware nodes and is a no-op otherwise.
func (n Node) SetMode(m Mode) {
	if ms, ok := n.slot().op.(ModeSetter); ok {
		ms.SetMode(m)
	}
}

// Mode returns the network mode of a mode-aware node, ModeUnset otherwise.
func (n Node) Mode() Mode {
	if ms, ok := n.slot().op.(ModeSetter); ok {
		return ms.Mode()
	}
	return ModeUnset
}

// ParameterRecord is the persistable state of a weight or bias node.
type ParameterRecord struct {
	Value tensor.Data  `json:"value"`
	State optim.Record `json:"state"`
}

func (n Node) learnable() (Learnable, error) {
	if !n.valid() {
		return nil, ErrInvalidHandle
	}
	l, ok := n.slot().op.(Learnable)
	if !ok {
		return nil, errors.Wrapf(ErrNotLearnable, "node %d (%s)", n.id, n.Name())
	}
	return l, nil
}

// SaveParameters snapshots the value and optimizer state of a parameter node.
func (n Node) SaveParameters() (ParameterRecord, error) {
	l, err := n.learnable()
	if err != nil {
		return ParameterRecord{}, err
	}
	return ParameterRecord{Value: l.Value().Clone(), State: l.State().Record()}, nil
}

// LoadParameters restores a snapshot produced by SaveParameters.
func (n Node) LoadParameters(rec ParameterRecord) error {
	l, err := n.learnable()
	if err != nil {
		return err
	}
	if err := l.State().Load(rec.State); err != nil {
		return err
	}
	return n.SetData(tensor.Parameter(rec.Value))
}

// SetMomentum overrides the momentum buffer of a parameter node.
func (n Node) SetMomentum(buffer tensor.Data) error {
	l, err := n.learnable()
	if err != nil {
		return err
	}
	l.State().SetMomentum(buffer)
	return nil
}

// SetLearningRate overrides the learning rate of a parameter node.
func (n Node) SetLearningRate(rate float32) error {
	l, err := n.learnable()
	if err != nil {
		return err
	}
	l.State().SetLearningRate(rate)
	return nil
}

// State returns the optimizer state of a parameter node.
func (n Node) State() (*optim.State, error) {
	l, err := n.learnable()
	if err != nil {
		return nil, err
	}
	return l.State(), nil
}
