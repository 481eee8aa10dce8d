package model

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError represents a model compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// CompileFile reads and compiles a model definition file.
func CompileFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return Compile(v.LookupPath(cue.ParsePath("model")))
}

// Compile parses a CUE value holding the model struct into a Model.
// Node declaration order is preserved.
func Compile(v cue.Value) (*Model, error) {
	// Exists before Err: looking up a missing "model" field yields a value
	// that reports both, and the missing-struct message is the useful one.
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "model",
			Message: "model struct is required",
		}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Model{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m.Name = name

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{
			Field:   "nodes",
			Message: "at least one node is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := parseNode(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		m.Nodes = append(m.Nodes, spec)
	}

	if len(m.Nodes) == 0 {
		return nil, &CompileError{
			Field:   "nodes",
			Message: "at least one node is required",
			Pos:     nodesVal.Pos(),
		}
	}

	if err := checkInputs(m); err != nil {
		return nil, err
	}

	return m, nil
}

// parseNode parses one node definition.
func parseNode(name string, v cue.Value) (NodeSpec, error) {
	spec := NodeSpec{Name: name}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return spec, &CompileError{
			Field:   name + ".kind",
			Message: "kind is required",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Kind = NodeKind(kind)

	switch spec.Kind {
	case KindConstant, KindVariable:
		valueVal := v.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return spec, &CompileError{
				Field:   name + ".value",
				Message: "value is required for " + kind + " nodes",
				Pos:     v.Pos(),
			}
		}
		spec.Value, err = parseScalar(name, valueVal)
		if err != nil {
			return spec, err
		}

	case KindCalc:
		opVal := v.LookupPath(cue.ParsePath("op"))
		if !opVal.Exists() {
			return spec, &CompileError{
				Field:   name + ".op",
				Message: "op is required for calc nodes",
				Pos:     v.Pos(),
			}
		}
		op, err := opVal.String()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Op = Op(op)
		if !validOps[spec.Op] {
			return spec, &CompileError{
				Field:   name + ".op",
				Message: fmt.Sprintf("unknown op %q", op),
				Pos:     opVal.Pos(),
			}
		}

		inputsVal := v.LookupPath(cue.ParsePath("inputs"))
		if inputsVal.Exists() {
			list, err := inputsVal.List()
			if err != nil {
				return spec, formatCUEError(err)
			}
			for list.Next() {
				in, err := list.Value().String()
				if err != nil {
					return spec, formatCUEError(err)
				}
				spec.Inputs = append(spec.Inputs, in)
			}
		}
		if len(spec.Inputs) == 0 {
			return spec, &CompileError{
				Field:   name + ".inputs",
				Message: "calc nodes need at least one input",
				Pos:     v.Pos(),
			}
		}
		if spec.Op == OpCompound && len(spec.Inputs) != 1 {
			return spec, &CompileError{
				Field:   name + ".inputs",
				Message: "compound takes exactly one input",
				Pos:     inputsVal.Pos(),
			}
		}

	default:
		return spec, &CompileError{
			Field:   name + ".kind",
			Message: fmt.Sprintf("unknown kind %q (want constant, variable, or calc)", kind),
			Pos:     kindVal.Pos(),
		}
	}

	return spec, nil
}

// parseScalar decodes a constant/variable value. Numbers normalize to
// float64 so the built-in operators compose without coercion rules.
func parseScalar(name string, v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	default:
		return nil, &CompileError{
			Field:   name + ".value",
			Message: fmt.Sprintf("unsupported value kind %v (want number, string, or bool)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// checkInputs verifies every calc input names a node defined in the model.
// The engine would surface an UnknownNode error at evaluation time anyway;
// failing at compile time points at the model file instead.
func checkInputs(m *Model) error {
	defined := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		defined[n.Name] = true
	}
	for _, n := range m.Nodes {
		for _, in := range n.Inputs {
			if !defined[in] {
				return &CompileError{
					Field:   n.Name + ".inputs",
					Message: fmt.Sprintf("input %q is not defined in the model", in),
				}
			}
		}
	}
	return nil
}
