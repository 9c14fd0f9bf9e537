package bind

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// Thrown is the native view of an engine exception: the exception class,
// its message, and (while still inside the producing call) the raw
// exception object for re-raising. A Thrown is created when an engine
// error crosses into native code and is consumed when it is returned,
// re-raised, or cleared via CheckPending.
type Thrown struct {
	Class   string
	Message string

	obj lua.LValue // Raw exception object; valid only within the call
}

// Error implements the error interface.
func (t *Thrown) Error() string {
	if t.Class == "" {
		return t.Message
	}
	return fmt.Sprintf("%s: %s", t.Class, t.Message)
}

// raisedError is a native failure directed at a specific exception
// class, produced by Raise and consumed by the invocation shim.
type raisedError struct {
	class string
	msg   string
}

// Error implements the error interface.
func (e *raisedError) Error() string {
	return fmt.Sprintf("%s: %s", e.class, e.msg)
}

// Raise returns an error that the invocation shim bridges to an engine
// exception of the given class. The class must be Throwable and bound in
// the engine the error eventually reaches.
func Raise(class string, format string, args ...interface{}) error {
	return &raisedError{class: class, msg: fmt.Sprintf(format, args...)}
}

// Throw constructs an engine exception object of the given class and
// marks the engine's active-exception slot. The invocation shim
// re-raises the pending exception once the current native call returns.
func (e *Engine) Throw(class string, msg string) error {
	d, ok := e.reg.Get(class)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if !d.throwable || !d.derivesFrom(ExceptionClass) {
		return fmt.Errorf("class %q: %w", class, ErrInvalidExceptionClass)
	}

	obj, err := e.newException(d, msg)
	if err != nil {
		return err
	}
	e.pending = &Thrown{Class: class, Message: msg, obj: obj.ud}
	return nil
}

// CheckPending returns the engine's pending exception as a native error
// and clears the slot. Call it after any native operation that may have
// triggered an engine-side exception; a pending exception must not be
// left to leak into an unrelated call.
func (e *Engine) CheckPending() error {
	err := e.pending
	e.pending = nil
	return err
}

// newException builds a bound exception object with its message set.
func (e *Engine) newException(d *Descriptor, msg string) (*Object, error) {
	obj, err := newObject(e, d)
	if err != nil {
		return nil, err
	}
	obj.props.RawSetString("message", lua.LString(msg))
	return obj, nil
}

// thrownFrom converts an engine error into a Thrown. Exception objects
// keep their class and message; plain script errors surface as
// RuntimeError.
func (e *Engine) thrownFrom(err error) *Thrown {
	var ae *lua.ApiError
	if !errors.As(err, &ae) {
		return &Thrown{Class: RuntimeErrorClass, Message: err.Error()}
	}

	if ud, ok := ae.Object.(*lua.LUserData); ok {
		if o, ok := ud.Value.(*Object); ok && o.InstanceOf(ExceptionClass) {
			msg := ""
			if s, ok := o.props.RawGetString("message").(lua.LString); ok {
				msg = string(s)
			}
			return &Thrown{Class: o.desc.name, Message: msg, obj: ud}
		}
	}

	return &Thrown{Class: RuntimeErrorClass, Message: ae.Object.String()}
}

// raise converts a native failure into an engine exception and raises it
// through the engine's own error mechanism. Must only be called from
// within an engine-invoked function, after every deferred recover has
// been popped.
func (e *Engine) raise(L *lua.LState, err error) {
	// Re-raise a caught engine exception with its original object.
	var thrown *Thrown
	if errors.As(err, &thrown) && thrown.obj != nil {
		L.Error(thrown.obj, 1)
		return
	}

	class := RuntimeErrorClass
	msg := err.Error()

	var raised *raisedError
	var mismatch *value.TypeMismatchError
	var oor *value.OutOfRangeError
	var badUTF8 *value.UTF8Error
	switch {
	case errors.As(err, &raised):
		class = raised.class
		msg = raised.msg
	case errors.As(err, &mismatch), errors.As(err, &oor), errors.As(err, &badUTF8):
		class = TypeErrorClass
	case thrown != nil:
		class = thrown.Class
		msg = thrown.Message
	case errors.Is(err, ErrAccessDenied):
		class = ExceptionClass
	}

	d, ok := e.reg.Get(class)
	if !ok || d.state != StateBound || !d.derivesFrom(ExceptionClass) {
		// No usable exception class; fall back to a plain engine error.
		L.RaiseError("%s", msg)
		return
	}

	obj, oerr := e.newException(d, msg)
	if oerr != nil {
		L.RaiseError("%s", msg)
		return
	}
	L.Error(obj.ud, 1)
}
