package value

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// pins holds the per-state pin counts on the Go side, out of reach of
// scripts. The reference kept here is what keeps a pinned value alive
// for the runtime; an entry exists only while its count is positive.
var pins = struct {
	mu sync.Mutex
	m  map[*lua.LState]map[lua.LValue]int
}{m: make(map[*lua.LState]map[lua.LValue]int)}

// Value is a native-side handle over one engine value.
//
// A Value is either borrowed (valid only until the call that produced it
// returns to the engine) or owned (pinned in the engine state until
// Release is called). The zero Value is a borrowed engine nil.
type Value struct {
	l        *lua.LState
	lv       lua.LValue
	owned    bool
	released bool
}

// Nil returns a borrowed engine nil.
func Nil() Value {
	return Value{lv: lua.LNil}
}

// Borrow wraps an engine value borrowed from the current call frame.
// Dropping a borrowed value is a no-op; it must not outlive the call.
func Borrow(l *lua.LState, lv lua.LValue) Value {
	if lv == nil {
		lv = lua.LNil
	}
	return Value{l: l, lv: lv}
}

// Own wraps an engine value and takes ownership, pinning reference-typed
// values so the engine cannot reclaim them. The caller must Release the
// result exactly once.
func Own(l *lua.LState, lv lua.LValue) Value {
	v := Borrow(l, lv)
	if v.Kind().refCounted() {
		pinAdd(l, lv, 1)
	}
	v.owned = true
	return v
}

// Kind returns the tag of the wrapped value without mutating it.
func (v Value) Kind() Kind {
	return KindOf(v.lv)
}

// Raw returns the underlying engine value.
func (v Value) Raw() lua.LValue {
	if v.lv == nil {
		return lua.LNil
	}
	return v.lv
}

// State returns the engine state the value belongs to. Nil for detached
// scalars.
func (v Value) State() *lua.LState {
	return v.l
}

// IsNil reports whether the value is the engine nil.
func (v Value) IsNil() bool {
	return v.Kind() == KindNil
}

// Owned reports whether this handle owns a pin on the value.
func (v Value) Owned() bool {
	return v.owned && !v.released
}

// IntoOwned returns an owned handle over the same value, adding one pin
// for reference-typed values. The receiver is unchanged; an owned
// receiver yields an independent second pin.
func (v Value) IntoOwned() Value {
	return Own(v.l, v.lv)
}

// AsBorrowed returns a borrowed view of the value without touching the
// pin count. The view must not outlive the owning handle.
func (v Value) AsBorrowed() Value {
	return Borrow(v.l, v.lv)
}

// Retain adds a pin and returns a new owned handle. Copying an owned
// reference always increments the pin count; values are never deep
// copied.
func (v Value) Retain() Value {
	return Own(v.l, v.lv)
}

// Release drops the handle's pin. Releasing a borrowed handle, a scalar,
// or an already-released handle is a no-op.
func (v *Value) Release() {
	if !v.owned || v.released {
		return
	}
	v.released = true
	if v.Kind().refCounted() {
		pinAdd(v.l, v.lv, -1)
	}
}

// PinCount returns the current pin count of an engine value. Values that
// were never pinned report zero.
func PinCount(l *lua.LState, lv lua.LValue) int {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	return pins.m[l][lv]
}

// ReleaseAll drops every outstanding pin for a state. Call it when
// closing the state, since pins taken through a closed state would keep
// their values referenced forever.
func ReleaseAll(l *lua.LState) {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	delete(pins.m, l)
}

// pinAdd adjusts an engine value's pin count by delta, removing the
// entry when the count reaches zero.
func pinAdd(l *lua.LState, lv lua.LValue, delta int) {
	if l == nil {
		return
	}
	pins.mu.Lock()
	defer pins.mu.Unlock()
	state := pins.m[l]
	if state == nil {
		if delta <= 0 {
			return
		}
		state = make(map[lua.LValue]int)
		pins.m[l] = state
	}
	n := state[lv] + delta
	if n <= 0 {
		delete(state, lv)
		if len(state) == 0 {
			delete(pins.m, l)
		}
		return
	}
	state[lv] = n
}
