package bind

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// The closure adapter wraps a capturing Go function as a bound object
// the engine can call. The engine's callable representation has no
// notion of captured native state, so the capture lives as the hidden
// payload of a manufactured Closure class whose __call metamethod routes
// through the invocation shim. The class is manufactured on first use
// and memoized in the registry; every closure shares it, since all
// captures present the same calling shape to the engine.

// closureCapture is the hidden payload of a closure object.
type closureCapture struct {
	fn   FuncHandler
	args []Arg
}

// WrapClosure wraps a capturing native function as an engine-callable
// object with the given argument specification. The returned value is
// borrowed; take ownership to keep it across calls into the engine.
func (e *Engine) WrapClosure(fn FuncHandler, args ...Arg) (value.Value, error) {
	if !e.opts.EnableClosures {
		return value.Nil(), ErrClosuresDisabled
	}
	if err := validateArgs("closure", args); err != nil {
		return value.Nil(), err
	}

	d, err := e.reg.closureDescriptor(e)
	if err != nil {
		return value.Nil(), err
	}

	obj, err := newObject(e, d)
	if err != nil {
		return value.Nil(), err
	}
	obj.payload.(*closureCapture).fn = fn
	obj.payload.(*closureCapture).args = args

	return obj.Value(), nil
}

// closureDescriptor returns the memoized closure class, manufacturing
// and binding it on first use. This is the one registry mutation allowed
// after the initialization phase; it happens on the engine's own thread
// during a native call, which the single-threaded contract permits.
func (r *Registry) closureDescriptor(e *Engine) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.classes[closureClass]; ok {
		return d, nil
	}

	d := NewClass(closureClass, func() interface{} { return &closureCapture{} })
	if err := r.declare(d); err != nil {
		return nil, err
	}
	d.state = StateResolving
	if err := r.bind(d, e); err != nil {
		d.state = StateFailed
		return nil, err
	}
	d.state = StateBound
	return d, nil
}

// closureCallShim adapts __call on a closure object: stack position 1 is
// the object itself, call arguments follow.
func (e *Engine) closureCallShim() lua.LGFunction {
	return func(L *lua.LState) int {
		o, err := ObjectOf(value.Borrow(L, L.Get(1)))
		if err != nil {
			e.raise(L, err)
			return 0
		}
		cap, ok := o.payload.(*closureCapture)
		if !ok || cap.fn == nil {
			e.raise(L, Raise(TypeErrorClass, "closure object has no callable capture"))
			return 0
		}
		return e.dispatch(L, "closure", closureClass, cap.args, 1, func(f *Frame) error {
			return cap.fn(f)
		})
	}
}
