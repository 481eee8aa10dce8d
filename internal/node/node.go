// Package node defines the capability contract for graph nodes and the
// built-in node kinds: Constant, Variable, and Calc. Anything implementing
// Node can be registered; the engine never inspects a node beyond this
// contract.
package node

import (
	"errors"

	"github.com/fenwick-labs/calcgraph/internal/ident"
)

// Evaluator is the single surface a compute body sees. Every read goes
// through Evaluate, which is how the engine discovers dependencies: reads
// made in a skipped branch are never recorded, so a node's dependency set
// tracks the branches it actually took.
type Evaluator interface {
	Evaluate(name string, args ...ident.Value) (any, error)
}

// Node produces a stable name and, given the engine and zero or more
// arguments, a value.
type Node interface {
	Name() string
	Compute(g Evaluator, args []ident.Value) (any, error)
}

// ErrParameterizedVariable is returned when a Variable is read or written
// with arguments. Variables address exactly one slot: (name, ()).
var ErrParameterizedVariable = errors.New("variable nodes take no arguments")
