package value

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// FromBool converts a Go bool to an engine value.
func FromBool(b bool) Value {
	return Value{lv: lua.LBool(b), owned: true}
}

// FromInt converts a signed integer to an engine value.
func FromInt(i int64) Value {
	return Value{lv: lua.LNumber(i), owned: true}
}

// FromUint converts an unsigned integer to an engine value.
func FromUint(u uint64) Value {
	return Value{lv: lua.LNumber(u), owned: true}
}

// FromFloat converts a float to an engine value.
func FromFloat(f float64) Value {
	return Value{lv: lua.LNumber(f), owned: true}
}

// FromString converts a Go string to an engine value.
func FromString(s string) Value {
	return Value{lv: lua.LString(s), owned: true}
}

// FromBytes converts a byte string to an engine value.
func FromBytes(b []byte) Value {
	return Value{lv: lua.LString(b), owned: true}
}

// FromSlice builds an owned engine sequence from element values.
func FromSlice(l *lua.LState, elems []Value) Value {
	t := l.NewTable()
	for i, e := range elems {
		t.RawSetInt(i+1, e.Raw())
	}
	return Own(l, t)
}

// FromStrings builds an owned engine sequence of strings.
func FromStrings(l *lua.LState, ss []string) Value {
	t := l.NewTable()
	for i, s := range ss {
		t.RawSetInt(i+1, lua.LString(s))
	}
	return Own(l, t)
}

// FromPairs builds an owned engine mapping, preserving the pair order as
// the table's key insertion order.
func FromPairs(l *lua.LState, pairs []Pair) Value {
	t := l.NewTable()
	for _, p := range pairs {
		t.RawSetString(p.Key, p.Val.Raw())
	}
	return Own(l, t)
}

// FromStringMap builds an owned engine mapping from a Go map. Key order
// is unspecified; use FromPairs when order matters.
func FromStringMap(l *lua.LState, m map[string]Value) Value {
	t := l.NewTable()
	for k, v := range m {
		t.RawSetString(k, v.Raw())
	}
	return Own(l, t)
}

// FromGo converts an arbitrary Go value to an owned engine value. The
// conversion is total: values with no native mapping become opaque
// userdata rather than failing.
func FromGo(l *lua.LState, v interface{}) Value {
	return Value{l: l, lv: goToLua(l, v), owned: true}
}

// goToLua converts a Go value to a raw engine value.
func goToLua(l *lua.LState, v interface{}) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []interface{}:
		t := l.NewTable()
		for i, e := range val {
			t.RawSetInt(i+1, goToLua(l, e))
		}
		return t
	case []string:
		t := l.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case map[string]interface{}:
		t := l.NewTable()
		for k, e := range val {
			t.RawSetString(k, goToLua(l, e))
		}
		return t
	case Value:
		return val.Raw()
	case lua.LValue:
		return val
	default:
		return reflectToLua(l, v)
	}
}

// reflectToLua handles Go values outside the fast-path switch.
func reflectToLua(l *lua.LState, v interface{}) lua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return reflectToLua(l, rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		t := l.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, goToLua(l, rv.Index(i).Interface()))
		}
		return t

	case reflect.Map:
		t := l.NewTable()
		for _, key := range rv.MapKeys() {
			l.RawSet(t, goToLua(l, key.Interface()), goToLua(l, rv.MapIndex(key).Interface()))
		}
		return t

	default:
		// Opaque payloads pass through as userdata
		ud := l.NewUserData()
		ud.Value = v
		return ud
	}
}
