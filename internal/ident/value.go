package ident

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface over the scalar types allowed as node
// arguments. Only String, Int, Float, and Bool implement it. Arguments are
// part of the cache key, so the set is closed: every member must have an
// exact, deterministic byte encoding (see canonical.go).
type Value interface {
	identValue() // sealed
	display() string
}

// String is a string argument. NFC-normalized before encoding.
type String string

func (String) identValue()       {}
func (s String) display() string { return strconv.Quote(string(s)) }

// Int is an integer argument. Always int64.
type Int int64

func (Int) identValue()       {}
func (i Int) display() string { return strconv.FormatInt(int64(i), 10) }

// Float is a floating-point argument. Identity encoding uses the exact
// IEEE 754 bit pattern, so 0.1 and 0.1 are equal but 0.1 and
// 0.30000000000000004/3 are not. Graph state never leaves the process
// (persistence is out of scope), so bit-pattern identity is sufficient.
type Float float64

func (Float) identValue()       {}
func (f Float) display() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Bool is a boolean argument.
type Bool bool

func (Bool) identValue()       {}
func (b Bool) display() string { return strconv.FormatBool(bool(b)) }

// FromGo converts a plain Go scalar to a Value. Used at API boundaries
// (CLI arguments, scenario files) where values arrive untyped.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
}
