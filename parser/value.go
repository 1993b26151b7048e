package parser

import (
	"strconv"
)

type ValueKind int

const (
	ValueStr ValueKind = iota
	ValueInt
	ValueUint
	ValueBool
	ValueIdent
)

func (k ValueKind) String() string {
	switch k {
	case ValueStr:
		return "string"
	case ValueInt:
		return "integer"
	case ValueUint:
		return "unsigned integer"
	case ValueBool:
		return "boolean"
	case ValueIdent:
		return "identifier"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the typed value of one argument. Str holds the text of both
// string and identifier values.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Uint uint64
	Bool bool
}

func StrValue(s string) Value { return Value{Kind: ValueStr, Str: s} }
func IntValue(n int64) Value { return Value{Kind: ValueInt, Int: n} }
func UintValue(n uint64) Value { return Value{Kind: ValueUint, Uint: n} }
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }
func IdentValue(s string) Value { return Value{Kind: ValueIdent, Str: s} }

func (v Value) String() string {
	switch v.Kind {
	case ValueStr:
		return strconv.Quote(v.Str)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueUint:
		return strconv.FormatUint(v.Uint, 10)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// identValue types a bare identifier: the spellings true and false are
// booleans, anything else stays an identifier.
func identValue(name string) Value {
	switch name {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	default:
		return IdentValue(name)
	}
}

// litValue converts a literal to a Value. Only string, boolean and integer
// literals have one.
func litValue(lit Lit) (Value, bool) {
	switch lit.Kind {
	case LitStr:
		return StrValue(lit.Str), true
	case LitBool:
		return BoolValue(lit.Bool), true
	case LitInt:
		if lit.Signed() {
			return IntValue(int64(lit.Int)), true
		}
		return UintValue(lit.Int), true
	default:
		return Value{}, false
	}
}

// Argument is one name=value pair of an argument list. Name is empty for
// positional arguments.
type Argument struct {
	Name  string
	Value Value
	Span  Span
}
