// Package model compiles declarative graph model definitions written in
// CUE into registered engine nodes.
//
// A model file names its nodes and their kinds:
//
//	model: {
//		name: "rates"
//		nodes: {
//			central_bank_rate: { kind: "constant", value: 0.05 }
//			inflation_rate:    { kind: "constant", value: 0.02 }
//			spread:            { kind: "variable", value: 0.0 }
//			real_rate:  { kind: "calc", op: "sub", inputs: ["central_bank_rate", "inflation_rate"] }
//			multi_year: { kind: "calc", op: "compound", inputs: ["real_rate"] }
//		}
//	}
//
// Calculated nodes read their inputs through the engine, so dependency
// discovery, caching, and invalidation behave exactly as for hand-written
// nodes. Custom calculation bodies beyond the built-in operators are
// registered in Go by the embedding program.
package model

import "fmt"

// NodeKind names a model node variant.
type NodeKind string

const (
	KindConstant NodeKind = "constant"
	KindVariable NodeKind = "variable"
	KindCalc     NodeKind = "calc"
)

// Op names a built-in calculation operator.
type Op string

const (
	// OpAdd, OpSub, OpMul, OpDiv fold left over the inputs' values.
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
	OpDiv Op = "div"

	// OpCompound reads a single rate input r and takes one integer
	// argument n: (1+r)^n - 1.
	OpCompound Op = "compound"
)

var validOps = map[Op]bool{
	OpAdd:      true,
	OpSub:      true,
	OpMul:      true,
	OpDiv:      true,
	OpCompound: true,
}

// NodeSpec is one compiled node definition.
type NodeSpec struct {
	Name string
	Kind NodeKind

	// Value is the constant value or variable initial value. Numbers are
	// normalized to float64; strings and bools pass through.
	Value any

	// Op and Inputs apply to calc nodes only.
	Op     Op
	Inputs []string
}

// Model is a compiled model definition. Nodes preserve declaration order.
type Model struct {
	Name  string
	Nodes []NodeSpec
}

// Describe renders a one-line summary of a node spec for listings.
func (n NodeSpec) Describe() string {
	switch n.Kind {
	case KindCalc:
		return fmt.Sprintf("%s: calc %s%v", n.Name, n.Op, n.Inputs)
	default:
		return fmt.Sprintf("%s: %s = %v", n.Name, n.Kind, n.Value)
	}
}
