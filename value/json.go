package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	lua "github.com/yuin/gopher-lua"
)

// FromJSON parses a JSON document into an owned engine value. Object key
// order is preserved in the resulting table.
func FromJSON(l *lua.LState, data []byte) (Value, error) {
	if l == nil {
		return Nil(), ErrNoState
	}
	if !gjson.ValidBytes(data) {
		return Nil(), fmt.Errorf("value: invalid JSON document")
	}
	lv := jsonToLua(l, gjson.ParseBytes(data))
	return Own(l, lv), nil
}

// jsonToLua converts one parsed JSON node to a raw engine value.
func jsonToLua(l *lua.LState, r gjson.Result) lua.LValue {
	switch {
	case r.Type == gjson.Null:
		return lua.LNil
	case r.Type == gjson.True:
		return lua.LTrue
	case r.Type == gjson.False:
		return lua.LFalse
	case r.Type == gjson.Number:
		return lua.LNumber(r.Num)
	case r.Type == gjson.String:
		return lua.LString(r.Str)
	case r.IsArray():
		t := l.NewTable()
		i := 1
		r.ForEach(func(_, el gjson.Result) bool {
			t.RawSetInt(i, jsonToLua(l, el))
			i++
			return true
		})
		return t
	case r.IsObject():
		t := l.NewTable()
		r.ForEach(func(k, el gjson.Result) bool {
			t.RawSetString(k.Str, jsonToLua(l, el))
			return true
		})
		return t
	default:
		return lua.LNil
	}
}

// ToJSON serializes the value as a JSON document. Sequences become
// arrays, other tables become objects in key insertion order. Objects,
// functions and channels are not representable and fail with ErrNotJSON.
func (v Value) ToJSON() ([]byte, error) {
	return luaToJSON(v.lv, make(map[*lua.LTable]bool))
}

// luaToJSON serializes one raw engine value, tracking visited tables.
func luaToJSON(lv lua.LValue, visited map[*lua.LTable]bool) ([]byte, error) {
	switch val := lv.(type) {
	case nil, *lua.LNilType:
		return []byte("null"), nil
	case lua.LBool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return strconv.AppendInt(nil, int64(f), 10), nil
		}
		return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
	case lua.LString:
		return quoteJSON(string(val))
	case *lua.LTable:
		if visited[val] {
			return nil, fmt.Errorf("value: circular table: %w", ErrNotJSON)
		}
		visited[val] = true
		defer delete(visited, val)
		return tableToJSON(val, visited)
	default:
		return nil, fmt.Errorf("value: %s: %w", KindOf(lv), ErrNotJSON)
	}
}

// tableToJSON serializes a table as an array or an object.
func tableToJSON(t *lua.LTable, visited map[*lua.LTable]bool) ([]byte, error) {
	if n, ok := sequenceLen(t); ok && n > 0 {
		out := []byte("[]")
		for i := 1; i <= n; i++ {
			raw, err := luaToJSON(t.RawGetInt(i), visited)
			if err != nil {
				return nil, err
			}
			out, err = sjson.SetRawBytes(out, "-1", raw)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	// Next preserves key insertion order; ForEach would not.
	out := []byte("{}")
	key := lua.LValue(lua.LNil)
	for {
		k, val := t.Next(key)
		if k == lua.LNil {
			break
		}
		ks, ok := k.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("value: non-string key %s: %w", KindOf(k), ErrNotJSON)
		}
		raw, err := luaToJSON(val, visited)
		if err != nil {
			return nil, err
		}
		out, err = sjson.SetRawBytes(out, escapeKey(string(ks)), raw)
		if err != nil {
			return nil, err
		}
		key = k
	}
	return out, nil
}

// quoteJSON produces a JSON string literal with correct escaping.
func quoteJSON(s string) ([]byte, error) {
	wrapped, err := sjson.SetBytes([]byte(`{}`), "v", s)
	if err != nil {
		return nil, err
	}
	return []byte(gjson.GetBytes(wrapped, "v").Raw), nil
}

// escapeKey escapes sjson path metacharacters in an object key.
func escapeKey(k string) string {
	if !strings.ContainsAny(k, `.*?|#@\`) {
		return k
	}
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
