package node

import "github.com/fenwick-labs/calcgraph/internal/ident"

// Constant is a node with a fixed value. Arguments are ignored, matching
// the contract that a constant presents the same value to every identity.
type Constant struct {
	name  string
	value any
}

// NewConstant creates a constant node.
func NewConstant(name string, value any) *Constant {
	return &Constant{name: name, value: value}
}

func (c *Constant) Name() string { return c.name }

func (c *Constant) Compute(_ Evaluator, _ []ident.Value) (any, error) {
	return c.value, nil
}

// Variable is a node with a mutable stored value. It is not parameterized:
// reading one with arguments is an error rather than a silent ignore.
type Variable struct {
	name  string
	value any
}

// NewVariable creates a variable node with an initial value.
func NewVariable(name string, initial any) *Variable {
	return &Variable{name: name, value: initial}
}

func (v *Variable) Name() string { return v.name }

func (v *Variable) Compute(_ Evaluator, args []ident.Value) (any, error) {
	if len(args) > 0 {
		return nil, ErrParameterizedVariable
	}
	return v.value, nil
}

// Set replaces the stored value. Callers go through Engine.SetValue, which
// follows the write with invalidation of the variable's dependents.
func (v *Variable) Set(value any) {
	v.value = value
}

// CalcFunc is a user-supplied calculation body. It reads other nodes
// through g and may be called once per distinct argument tuple.
type CalcFunc func(g Evaluator, args []ident.Value) (any, error)

// Calc is a node computed by a user-supplied function.
type Calc struct {
	name string
	fn   CalcFunc
}

// NewCalc creates a calculated node.
func NewCalc(name string, fn CalcFunc) *Calc {
	return &Calc{name: name, fn: fn}
}

func (c *Calc) Name() string { return c.name }

func (c *Calc) Compute(g Evaluator, args []ident.Value) (any, error) {
	return c.fn(g, args)
}
