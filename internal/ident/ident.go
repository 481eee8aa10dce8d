// Package ident defines node identity: the (name, arguments) pair that
// addresses one cached computation instance of a node.
//
// One registered node services many identities — `rate("EUR", 5)` and
// `rate("EUR", 10)` cache independently. Two identities are equal iff the
// name and every argument are equal; equality is realized as equality of
// content-addressed keys derived from a canonical byte encoding.
package ident

import "strings"

// Identity addresses one cached slot in the graph.
//
// The zero Identity is not valid; construct with New.
type Identity struct {
	name string
	args []Value
	key  string
}

// New builds the identity for a node name and argument list.
func New(name string, args ...Value) Identity {
	return Identity{
		name: name,
		args: args,
		key:  hashWithDomain(domainIdentity, encodeCanonical(name, args)),
	}
}

// Name returns the node name component.
func (id Identity) Name() string { return id.name }

// Args returns the argument component. Callers must not mutate the slice.
func (id Identity) Args() []Value { return id.args }

// Key returns the content-addressed key. Identities are equal iff their
// keys are equal.
func (id Identity) Key() string { return id.key }

// Equal reports whether two identities address the same slot.
func (id Identity) Equal(other Identity) bool { return id.key == other.key }

// String renders the identity for logs and error messages,
// e.g. `discount_curve("EUR", 5)` or plain `spot` for no arguments.
func (id Identity) String() string {
	if len(id.args) == 0 {
		return id.name
	}
	var sb strings.Builder
	sb.WriteString(id.name)
	sb.WriteByte('(')
	for i, arg := range id.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.display())
	}
	sb.WriteByte(')')
	return sb.String()
}
