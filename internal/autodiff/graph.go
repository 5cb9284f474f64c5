// Package autodiff implements reverse-mode automatic differentiation over an
// explicit computation graph.
//
// Architecture:
//   - Graph: an arena of nodes addressed by NodeID; edges are ids, so no node
//     ever holds a reference into another node's state
//   - Node: a lightweight handle (graph + id) exposing the forward/backward contract
//   - Operator: the kind-specific forward and backward rules (see package ops)
//   - Gradient protocol: a node accumulates gradients from its consumers and
//     propagates only when every consumer has contributed
//
// Backpropagation is a counter-gated wavefront: ApplyJacobian on the root
// pushes gradients to its inputs, and each input recurses as soon as its
// fan-in counter reaches its fan-out. This is Kahn's algorithm run backwards
// over the DAG without a precomputed topological order.
//
// Usage:
//
//	g := autodiff.New()
//	x := ops.NewInput(g, tensor.VectorShape(3))
//	w := ops.NewWeight(g, tensor.MatrixShape(3, 2), optim.Config{LearningRate: 0.1})
//	y := ops.NewMatrixMultiply(g)
//	_ = y.AddInput(x)
//	_ = y.AddInput(w)
//	// ... activation, loss ...
//	out, _ := g.Forward(loss)
//	_ = g.Backward(loss) // updates w
package autodiff

import (
	"github.com/born-ml/nodegraph/internal/diag"
	"github.com/born-ml/nodegraph/internal/tensor"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// NodeID addresses a node inside its Graph.
type NodeID int

// node is the arena slot of a vertex.
type node struct {
	op  Operator
	typ Type

	inputs  []NodeID // nodes this one reads, in order
	outputs []NodeID // consumers; only the count matters for the gradient gate

	value     tensor.Container // cached forward value
	grad      tensor.Container // accumulated gradient
	gradCount int              // consumers that have contributed this step

	epoch uint64 // last memoised forward step
}

// Graph owns every node of one network.
//
// A Graph is not safe for concurrent use; forward and backward passes are
// synchronous and single-threaded.
type Graph struct {
	id     uuid.UUID
	nodes  []*node
	logger *zap.Logger
	epoch  uint64
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the graph logger. The default is the diag logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		id:     uuid.New(),
		nodes:  make([]*node, 0, 32),
		logger: diag.Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.Stringer("graph", g.id))
	return g
}

// ID returns the graph identifier used in log fields.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Logger returns the graph logger.
func (g *Graph) Logger() *zap.Logger {
	return g.logger
}

// Add registers op as a new node and returns its handle.
func (g *Graph) Add(op Operator) Node {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &node{
		op:    op,
		typ:   op.Type(),
		value: tensor.Empty(),
		grad:  tensor.Empty(),
	})
	return Node{g: g, id: id}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the handle for id. The handle is invalid if id is out of range.
func (g *Graph) Node(id NodeID) Node {
	return Node{g: g, id: id}
}

// Nodes returns handles for every node in creation order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i := range g.nodes {
		out[i] = Node{g: g, id: NodeID(i)}
	}
	return out
}

// Parameters returns every node tagged TypeParameter.
func (g *Graph) Parameters() []Node {
	var out []Node
	for i, n := range g.nodes {
		if n.typ == TypeParameter {
			out = append(out, Node{g: g, id: NodeID(i)})
		}
	}
	return out
}

// Validate reports every node whose wiring cannot produce a meaningful value.
func (g *Graph) Validate() error {
	var err error
	for i, n := range g.nodes {
		if e := checkArity(n); e != nil {
			err = multierr.Append(err, errors.WithMessagef(e, "node %d (%s)", i, n.op.Name()))
		}
	}
	return err
}

// SetMode pushes m into every mode-aware node.
func (g *Graph) SetMode(m Mode) {
	for _, n := range g.nodes {
		if ms, ok := n.op.(ModeSetter); ok {
			ms.SetMode(m)
		}
	}
}

// Forward evaluates root as one step: every node reachable from root is
// computed at most once, however many consumers it has. The observable
// result equals root.ApplyOperation().
func (g *Graph) Forward(root Node) (tensor.Container, error) {
	if err := g.check(root); err != nil {
		return tensor.Empty(), err
	}
	g.epoch++
	if err := g.forward(root.id, g.epoch); err != nil {
		return tensor.Empty(), err
	}
	return g.nodes[root.id].value, nil
}

// Backward seeds root with a unit gradient and propagates it through the
// whole graph, updating every parameter on the way.
func (g *Graph) Backward(root Node) error {
	if err := g.check(root); err != nil {
		return err
	}
	root.AddGradient(tensor.Parameter(tensor.Scalar(1)))
	return g.applyJacobian(root.id)
}

// ResetGradients clears every accumulator and fan-in counter, e.g. after a
// step that failed half-way.
func (g *Graph) ResetGradients() {
	for _, n := range g.nodes {
		n.grad = tensor.Empty()
		n.gradCount = 0
	}
}

func (g *Graph) check(n Node) error {
	if n.g != g || !n.valid() {
		return ErrInvalidHandle
	}
	return nil
}

// forward evaluates id after its inputs. epoch 0 disables memoisation.
func (g *Graph) forward(id NodeID, epoch uint64) error {
	n := g.nodes[id]
	if epoch != 0 && n.epoch == epoch {
		return nil
	}
	if err := checkArity(n); err != nil {
		return errors.WithMessagef(err, "forward node %d (%s)", id, n.op.Name())
	}
	for _, in := range n.inputs {
		if err := g.forward(in, epoch); err != nil {
			return err
		}
	}

	value, err := n.op.Forward(&Context{g: g, id: id})
	if err != nil {
		return errors.WithMessagef(err, "forward node %d (%s)", id, n.op.Name())
	}
	n.value = value
	n.epoch = epoch
	return nil
}

// applyJacobian runs the backward step of id and recurses into every input
// whose gradient is complete.
func (g *Graph) applyJacobian(id NodeID) error {
	n := g.nodes[id]
	grad := n.grad
	n.grad = tensor.Empty()
	n.gradCount = 0

	grads, err := n.op.Backward(&Context{g: g, id: id}, grad)
	if err != nil {
		return errors.WithMessagef(err, "backward node %d (%s)", id, n.op.Name())
	}
	if len(n.inputs) == 0 {
		return nil
	}
	if len(grads) != len(n.inputs) {
		return errors.Wrapf(ErrGradientArity, "backward node %d (%s): %d gradients for %d inputs",
			id, n.op.Name(), len(grads), len(n.inputs))
	}

	for i, in := range n.inputs {
		g.nodes[in].addGradient(grads[i])
	}
	for _, in := range n.inputs {
		if g.nodes[in].ready() {
			if err := g.applyJacobian(in); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *node) addGradient(c tensor.Container) {
	if n.grad.IsEmpty() && n.gradCount == 0 {
		n.grad = c.Clone()
	} else {
		n.grad = n.grad.Plus(c)
	}
	n.gradCount++
}

func (n *node) ready() bool {
	return n.gradCount == len(n.outputs)
}

func checkArity(n *node) error {
	want := n.op.Arity()
	have := len(n.inputs)
	switch {
	case want == ArityVariadic && have == 0:
		return errors.Wrap(ErrMissingInput, "need at least one input")
	case want >= 0 && have < want:
		return errors.Wrapf(ErrMissingInput, "have %d of %d inputs", have, want)
	}
	return nil
}
