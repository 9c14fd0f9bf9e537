package value

import (
	lua "github.com/yuin/gopher-lua"
)

// Kind identifies the tag of an engine value.
type Kind int

// Value kinds.
const (
	// KindNil - the engine nil value.
	KindNil Kind = iota

	// KindBool - a boolean.
	KindBool

	// KindInt - a number with no fractional part.
	KindInt

	// KindFloat - a number with a fractional part.
	KindFloat

	// KindString - a byte string (may or may not be valid UTF-8).
	KindString

	// KindTable - an engine table (sequence or mapping).
	KindTable

	// KindObject - userdata backed by a native payload.
	KindObject

	// KindFunction - a callable.
	KindFunction

	// KindChannel - an engine channel.
	KindChannel
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// refCounted reports whether values of this kind are engine-managed
// references that participate in pinning. Strings are immutable engine
// values and need no pin.
func (k Kind) refCounted() bool {
	switch k {
	case KindTable, KindObject, KindFunction, KindChannel:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of a raw engine value. Numbers are split into
// int and float by their representable integer test.
func KindOf(lv lua.LValue) Kind {
	if lv == nil {
		return KindNil
	}

	switch v := lv.(type) {
	case *lua.LNilType:
		return KindNil
	case lua.LBool:
		return KindBool
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return KindInt
		}
		return KindFloat
	case lua.LString:
		return KindString
	case *lua.LTable:
		return KindTable
	case *lua.LUserData:
		return KindObject
	case *lua.LFunction:
		return KindFunction
	case lua.LChannel:
		return KindChannel
	default:
		return KindNil
	}
}
