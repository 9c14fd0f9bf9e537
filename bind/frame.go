package bind

import (
	"github.com/dshills/luagate/value"
)

// Frame is the transient per-call view over one cross-boundary
// invocation: the argument values, borrowed for the call's duration, and
// a write-once return slot owned by the frame until control returns to
// the engine. Frames must not be retained past the call.
type Frame struct {
	eng    *Engine
	args   []value.Value
	ret    value.Value
	retSet bool
}

// Engine returns the engine the call arrived on.
func (f *Frame) Engine() *Engine {
	return f.eng
}

// NArgs returns the number of argument slots, declared defaults
// included.
func (f *Frame) NArgs() int {
	return len(f.args)
}

// Arg returns the i-th argument as a borrowed value. Out-of-range
// indexes return engine nil.
func (f *Frame) Arg(i int) value.Value {
	if i < 0 || i >= len(f.args) {
		return value.Nil()
	}
	return f.args[i]
}

// Args returns all borrowed argument values.
func (f *Frame) Args() []value.Value {
	return f.args
}

// Return writes the call's result into the return slot. The slot is
// write-once; a second write fails with ErrReturnAlreadySet.
func (f *Frame) Return(v value.Value) error {
	if f.retSet {
		return ErrReturnAlreadySet
	}
	f.ret = v
	f.retSet = true
	return nil
}
