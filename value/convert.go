package value

import (
	"math"
	"strconv"
	"unicode/utf8"

	lua "github.com/yuin/gopher-lua"
)

// AsBool extracts a boolean. No truthiness coercion is applied; any
// non-boolean tag is a TypeMismatchError.
func (v Value) AsBool() (bool, error) {
	b, ok := v.lv.(lua.LBool)
	if !ok {
		return false, mismatch(KindBool, v.Kind())
	}
	return bool(b), nil
}

// AsInt64 extracts an integer. A number with a fractional part or one
// outside the int64 range is an OutOfRangeError.
func (v Value) AsInt64() (int64, error) {
	n, ok := v.lv.(lua.LNumber)
	if !ok {
		return 0, mismatch(KindInt, v.Kind())
	}
	f := float64(n)
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &OutOfRangeError{Value: strconv.FormatFloat(f, 'g', -1, 64), Target: "int64"}
	}
	return int64(f), nil
}

// AsInt32 extracts a 32-bit integer.
func (v Value) AsInt32() (int32, error) {
	return narrowInt[int32](v, math.MinInt32, math.MaxInt32, "int32")
}

// AsInt16 extracts a 16-bit integer.
func (v Value) AsInt16() (int16, error) {
	return narrowInt[int16](v, math.MinInt16, math.MaxInt16, "int16")
}

// AsInt8 extracts an 8-bit integer.
func (v Value) AsInt8() (int8, error) {
	return narrowInt[int8](v, math.MinInt8, math.MaxInt8, "int8")
}

// AsInt extracts a platform int.
func (v Value) AsInt() (int, error) {
	return narrowInt[int](v, math.MinInt, math.MaxInt, "int")
}

// narrowInt converts with a lossless-narrowing check.
func narrowInt[T ~int | ~int8 | ~int16 | ~int32](v Value, lo, hi int64, target string) (T, error) {
	i, err := v.AsInt64()
	if err != nil {
		return 0, err
	}
	if i < lo || i > hi {
		return 0, &OutOfRangeError{Value: strconv.FormatInt(i, 10), Target: target}
	}
	return T(i), nil
}

// AsUint64 extracts an unsigned integer. Negative numbers are an
// OutOfRangeError.
func (v Value) AsUint64() (uint64, error) {
	i, err := v.AsInt64()
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, &OutOfRangeError{Value: strconv.FormatInt(i, 10), Target: "uint64"}
	}
	return uint64(i), nil
}

// AsUint32 extracts a 32-bit unsigned integer.
func (v Value) AsUint32() (uint32, error) {
	return narrowUint[uint32](v, math.MaxUint32, "uint32")
}

// AsUint16 extracts a 16-bit unsigned integer.
func (v Value) AsUint16() (uint16, error) {
	return narrowUint[uint16](v, math.MaxUint16, "uint16")
}

// AsUint8 extracts an 8-bit unsigned integer.
func (v Value) AsUint8() (uint8, error) {
	return narrowUint[uint8](v, math.MaxUint8, "uint8")
}

// narrowUint converts with a lossless-narrowing check.
func narrowUint[T ~uint8 | ~uint16 | ~uint32](v Value, hi uint64, target string) (T, error) {
	u, err := v.AsUint64()
	if err != nil {
		return 0, err
	}
	if u > hi {
		return 0, &OutOfRangeError{Value: strconv.FormatUint(u, 10), Target: target}
	}
	return T(u), nil
}

// AsFloat64 extracts a float. Integer-valued numbers convert without
// error.
func (v Value) AsFloat64() (float64, error) {
	n, ok := v.lv.(lua.LNumber)
	if !ok {
		return 0, mismatch(KindFloat, v.Kind())
	}
	return float64(n), nil
}

// AsFloat32 extracts a 32-bit float. Values whose magnitude overflows
// float32 are an OutOfRangeError.
func (v Value) AsFloat32() (float32, error) {
	f, err := v.AsFloat64()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && math.IsInf(float64(float32(f)), 0) {
		return 0, &OutOfRangeError{Value: strconv.FormatFloat(f, 'g', -1, 64), Target: "float32"}
	}
	return float32(f), nil
}

// AsString extracts a text string. String payloads that are not valid
// UTF-8 are a UTF8Error; use AsBytes for raw byte strings.
func (v Value) AsString() (string, error) {
	s, ok := v.lv.(lua.LString)
	if !ok {
		return "", mismatch(KindString, v.Kind())
	}
	if !utf8.ValidString(string(s)) {
		return "", &UTF8Error{At: invalidAt(string(s))}
	}
	return string(s), nil
}

// AsBytes extracts a byte string with no text validation.
func (v Value) AsBytes() ([]byte, error) {
	s, ok := v.lv.(lua.LString)
	if !ok {
		return nil, mismatch(KindString, v.Kind())
	}
	return []byte(s), nil
}

// invalidAt returns the byte offset of the first invalid UTF-8 sequence.
func invalidAt(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return 0
}

// Pair is one ordered entry of a mapping conversion.
type Pair struct {
	Key string
	Val Value
}

// AsSlice extracts an ordered sequence as borrowed element values. The
// table must be a contiguous sequence indexed from 1.
func (v Value) AsSlice() ([]Value, error) {
	t, ok := v.lv.(*lua.LTable)
	if !ok {
		return nil, mismatch(KindTable, v.Kind())
	}
	n := t.Len()
	out := make([]Value, n)
	for i := 1; i <= n; i++ {
		out[i-1] = Borrow(v.l, t.RawGetInt(i))
	}
	return out, nil
}

// AsStrings extracts a sequence of text strings, short-circuiting on the
// first element failure.
func (v Value) AsStrings() ([]string, error) {
	elems, err := v.AsSlice()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, err := e.AsString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// AsInts extracts a sequence of integers, short-circuiting on the first
// element failure.
func (v Value) AsInts() ([]int64, error) {
	elems, err := v.AsSlice()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(elems))
	for i, e := range elems {
		n, err := e.AsInt64()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// AsPairs extracts a mapping as ordered key/value pairs. The engine
// preserves key insertion order for non-sequence keys, so the pairs come
// back in the order the table was built. Non-string keys are a
// TypeMismatchError.
func (v Value) AsPairs() ([]Pair, error) {
	t, ok := v.lv.(*lua.LTable)
	if !ok {
		return nil, mismatch(KindTable, v.Kind())
	}

	// Next walks the table's key list in insertion order. ForEach ranges
	// Go maps and would scramble the keys.
	var pairs []Pair
	key := lua.LValue(lua.LNil)
	for {
		k, val := t.Next(key)
		if k == lua.LNil {
			break
		}
		ks, ok := k.(lua.LString)
		if !ok {
			return nil, mismatch(KindString, KindOf(k))
		}
		pairs = append(pairs, Pair{Key: string(ks), Val: Borrow(v.l, val)})
		key = k
	}
	return pairs, nil
}

// AsStringMap extracts a mapping keyed by string. Use AsPairs when key
// order matters.
func (v Value) AsStringMap() (map[string]Value, error) {
	pairs, err := v.AsPairs()
	if err != nil {
		return nil, err
	}
	m := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Val
	}
	return m, nil
}

// Interface converts the value to a plain Go value: bool, int64,
// float64, string, []interface{}, map[string]interface{} or nil.
// Circular tables are broken with nil.
func (v Value) Interface() interface{} {
	return toInterface(v.lv, make(map[*lua.LTable]bool))
}

// toInterface converts a raw engine value, tracking visited tables.
func toInterface(lv lua.LValue, visited map[*lua.LTable]bool) interface{} {
	if lv == nil {
		return nil
	}

	switch val := lv.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if visited[val] {
			return nil // Break circular reference
		}
		visited[val] = true
		return tableToInterface(val, visited)
	case *lua.LUserData:
		return val.Value
	default:
		return nil
	}
}

// tableToInterface converts a table to a slice or a map depending on its
// key shape.
func tableToInterface(t *lua.LTable, visited map[*lua.LTable]bool) interface{} {
	if n, ok := sequenceLen(t); ok && n > 0 {
		arr := make([]interface{}, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toInterface(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]interface{})
	t.ForEach(func(k, val lua.LValue) {
		m[k.String()] = toInterface(val, visited)
	})
	return m
}

// sequenceLen reports whether the table is a contiguous sequence indexed
// from 1 and returns its length.
func sequenceLen(t *lua.LTable) (int, bool) {
	maxN := 0
	count := 0
	isSeq := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok {
			isSeq = false
			return
		}
		n := int(kn)
		if float64(n) != float64(kn) || n < 1 {
			isSeq = false
			return
		}
		if n > maxN {
			maxN = n
		}
	})
	if !isSeq || count != maxN {
		return 0, count == 0
	}
	return maxN, true
}
