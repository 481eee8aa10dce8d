package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a failure detected by the engine itself, as opposed to
// an error raised inside a user calculation body (which propagates through
// Evaluate unmodified).
//
// Every engine error is synchronous and recoverable by the caller:
// register the missing node, fix the input, remove the override, retry.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the node name involved, when one applies.
	Node string

	// Cycle holds the identities forming the cycle, first re-entered
	// identity first, for ErrCodeCycle.
	Cycle []string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnknownNode indicates an identity names a node never registered.
	ErrCodeUnknownNode ErrorCode = "UNKNOWN_NODE"

	// ErrCodeDuplicateName indicates a registration under an already-used name.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// ErrCodeNotVariable indicates SetValue on a node that is not a Variable.
	ErrCodeNotVariable ErrorCode = "NOT_VARIABLE"

	// ErrCodeCycle indicates an identity was re-entered while still being
	// computed.
	ErrCodeCycle ErrorCode = "CYCLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(e.Cycle, " -> "))
	}
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownNode reports whether err is an unknown-node error.
// Uses errors.As to handle wrapped errors.
func IsUnknownNode(err error) bool { return hasCode(err, ErrCodeUnknownNode) }

// IsDuplicateName reports whether err is a duplicate-registration error.
func IsDuplicateName(err error) bool { return hasCode(err, ErrCodeDuplicateName) }

// IsNotVariable reports whether err is a set-value-on-non-variable error.
func IsNotVariable(err error) bool { return hasCode(err, ErrCodeNotVariable) }

// IsCycle reports whether err is a cycle detection error.
func IsCycle(err error) bool { return hasCode(err, ErrCodeCycle) }

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newUnknownNodeError(name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownNode,
		Message: "no node registered by that name",
		Node:    name,
	}
}

func newDuplicateNameError(name string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateName,
		Message: "a node by that name is already registered",
		Node:    name,
	}
}

func newNotVariableError(name string) *Error {
	return &Error{
		Code:    ErrCodeNotVariable,
		Message: "node is not a variable",
		Node:    name,
	}
}

func newCycleError(cycle []string) *Error {
	return &Error{
		Code:    ErrCodeCycle,
		Message: "identity re-entered while still being computed",
		Cycle:   cycle,
	}
}
