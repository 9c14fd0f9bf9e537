package bind

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// The invocation shim adapts engine-convention calls (arguments on the
// stack, results pushed back) into native handler calls with validated,
// typed arguments. It is the single point where native failures are
// trapped: every error and every panic raised by a handler is converted
// to an engine exception here, before control returns to engine code.

// validateArgs checks that optional arguments trail the required ones.
func validateArgs(label string, spec []Arg) error {
	seenOptional := false
	for _, a := range spec {
		if a.Optional {
			seenOptional = true
		} else if seenOptional {
			return fmt.Errorf("%s: required argument %q follows an optional argument", label, a.Name)
		}
	}
	return nil
}

// arity returns the minimum and maximum accepted argument counts.
func arity(spec []Arg) (min, max int) {
	max = len(spec)
	for _, a := range spec {
		if a.Optional {
			break
		}
		min++
	}
	return min, max
}

// collectArgs validates the argument count against the declared
// specification and materializes the argument slots: present arguments
// are borrowed from the call frame, missing optional ones are filled
// from their native defaults. The second return value lists owned
// default values the dispatcher must release after the call.
func (e *Engine) collectArgs(L *lua.LState, label string, spec []Arg, base int) ([]value.Value, []value.Value, error) {
	min, max := arity(spec)
	got := L.GetTop() - base
	if got < min {
		return nil, nil, Raise(TypeErrorClass, "%s expects at least %d argument(s), got %d", label, min, got)
	}
	if got > max {
		return nil, nil, Raise(TypeErrorClass, "%s expects at most %d argument(s), got %d", label, max, got)
	}

	args := make([]value.Value, max)
	var owned []value.Value
	for i := 0; i < max; i++ {
		if i < got {
			args[i] = value.Borrow(L, L.Get(base + 1 + i))
			continue
		}
		def := value.FromGo(L, spec[i].Default)
		owned = append(owned, def)
		args[i] = def.AsBorrowed()
	}
	return args, owned, nil
}

// guardCall runs a native handler inside the boundary trap, maintaining
// the property-access context and converting any panic into an error.
func (e *Engine) guardCall(className string, f *Frame, call func(*Frame) error) (err error) {
	if className != "" {
		e.pushClass(className)
		defer e.popClass()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native panic: %v", r)
		}
	}()
	return call(f)
}

// dispatch runs one engine-to-native call end to end: argument
// collection, the guarded handler call, the pending-exception check, and
// writing the return slot back to the engine.
func (e *Engine) dispatch(L *lua.LState, label, className string, spec []Arg, base int, call func(*Frame) error) int {
	args, owned, err := e.collectArgs(L, label, spec, base)
	if err != nil {
		e.raise(L, err)
		return 0
	}

	f := &Frame{eng: e, args: args}
	err = e.guardCall(className, f, call)
	for i := range owned {
		owned[i].Release()
	}

	// A handler may have thrown without returning an error. The slot is
	// consumed either way; a pending exception never outlives the call.
	if pend := e.CheckPending(); err == nil {
		err = pend
	}
	if err != nil {
		// A result written before the failure must not stay pinned.
		if f.retSet {
			f.ret.Release()
		}
		e.raise(L, err)
		return 0
	}

	if !f.retSet {
		return 0
	}
	L.Push(f.ret.Raw())
	// The engine stack holds the result now; drop the frame's ownership.
	f.ret.Release()
	return 1
}

// funcShim wraps an exported function.
func (e *Engine) funcShim(fn *Func) lua.LGFunction {
	return func(L *lua.LState) int {
		return e.dispatch(L, fmt.Sprintf("function %q", fn.Name), "", fn.Args, 0, func(f *Frame) error {
			return fn.Handler(f)
		})
	}
}

// receiver extracts and downcast-checks the method receiver at stack
// position 1.
func (e *Engine) receiver(L *lua.LState, d *Descriptor, name string) (*Object, error) {
	o, err := ObjectOf(value.Borrow(L, L.Get(1)))
	if err != nil {
		return nil, Raise(TypeErrorClass, "method %q called without a %s receiver", name, d.name)
	}
	if !o.InstanceOf(d.name) {
		return nil, Raise(TypeErrorClass, "method %q expects a %s receiver, got %s", name, d.name, o.desc.name)
	}
	return o, nil
}

// methodShim wraps a method for the class it is bound on. The receiver
// occupies stack position 1; declared arguments follow. The access
// context for the call is the class that declared the method, not the
// receiver's class, so an inherited method keeps reading the private
// properties of the class it was written on.
func (e *Engine) methodShim(d, decl *Descriptor, m *Method) lua.LGFunction {
	label := fmt.Sprintf("method %q", d.name+":"+m.Name)
	return func(L *lua.LState) int {
		recv, err := e.receiver(L, d, m.Name)
		if err != nil {
			e.raise(L, err)
			return 0
		}
		return e.dispatch(L, label, decl.name, m.Args, 1, func(f *Frame) error {
			return m.Handler(recv, f)
		})
	}
}

// ctorShim wraps the class constructor exposed as <Class>.new(...). The
// backing object is allocated with all property defaults in place before
// the constructor hook runs; a failing hook destroys the half-built
// instance. Constructors are inherited: the nearest declared hook in the
// ancestry runs, in its declaring class's access context.
func (e *Engine) ctorShim(d *Descriptor) lua.LGFunction {
	label := fmt.Sprintf("constructor %q", d.name+".new")
	return func(L *lua.LState) int {
		ctor, decl := d.findCtor()
		var spec []Arg
		if ctor != nil {
			spec = ctor.Args
		}
		args, owned, err := e.collectArgs(L, label, spec, 0)
		if err != nil {
			e.raise(L, err)
			return 0
		}

		obj, err := newObject(e, d)
		if err != nil {
			for i := range owned {
				owned[i].Release()
			}
			e.raise(L, err)
			return 0
		}

		if ctor != nil {
			f := &Frame{eng: e, args: args}
			err = e.guardCall(decl.name, f, func(f *Frame) error {
				return ctor.Handler(obj, f)
			})
			// Constructors yield the instance itself; a slot write is
			// discarded, not leaked.
			if f.retSet {
				f.ret.Release()
			}
		}
		for i := range owned {
			owned[i].Release()
		}
		if pend := e.CheckPending(); err == nil {
			err = pend
		}
		if err != nil {
			obj.Destroy()
			e.raise(L, err)
			return 0
		}

		L.Push(obj.ud)
		return 1
	}
}

// indexShim resolves property reads and method lookups for instances.
func (e *Engine) indexShim(d *Descriptor) lua.LGFunction {
	return func(L *lua.LState) int {
		o, err := ObjectOf(value.Borrow(L, L.Get(1)))
		if err != nil {
			e.raise(L, err)
			return 0
		}
		key, ok := L.Get(2).(lua.LString)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}

		if _, _, found := o.desc.findProperty(string(key)); found {
			v, err := o.Get(string(key))
			if err != nil {
				e.raise(L, err)
				return 0
			}
			L.Push(v.Raw())
			return 1
		}

		if m, ok := d.methodTab[string(key)]; ok {
			L.Push(m)
			return 1
		}

		L.Push(lua.LNil)
		return 1
	}
}

// newindexShim resolves property writes for instances. Writes to
// undeclared properties are rejected; the property table is fixed at
// class registration.
func (e *Engine) newindexShim(d *Descriptor) lua.LGFunction {
	return func(L *lua.LState) int {
		o, err := ObjectOf(value.Borrow(L, L.Get(1)))
		if err != nil {
			e.raise(L, err)
			return 0
		}
		key, ok := L.Get(2).(lua.LString)
		if !ok {
			e.raise(L, Raise(TypeErrorClass, "property keys of %s must be strings", d.name))
			return 0
		}

		if err := o.Set(string(key), value.Borrow(L, L.Get(3))); err != nil {
			e.raise(L, err)
			return 0
		}
		return 0
	}
}
