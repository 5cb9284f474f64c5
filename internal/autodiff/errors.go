package autodiff

import "github.com/pkg/errors"

// Structural errors. They indicate a malformed graph that cannot produce a
// meaningful result; match them with errors.Is.
var (
	ErrArity          = errors.New("input arity exceeded")
	ErrMissingInput   = errors.New("missing required input")
	ErrNotSettable    = errors.New("node does not accept external data")
	ErrModeUnset      = errors.New("network mode not set")
	ErrCycle          = errors.New("edge would create a cycle")
	ErrForeignNode    = errors.New("node belongs to a different graph")
	ErrGradientArity  = errors.New("backward returned wrong number of gradients")
	ErrNotLearnable   = errors.New("node has no optimizer state")
	ErrInvalidHandle  = errors.New("invalid node handle")
	ErrUnknownOperand = errors.New("cannot resolve operand roles")
)
