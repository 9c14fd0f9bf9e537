package bind

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Builtin class names declared in every registry.
const (
	// ExceptionClass is the root of all throwable classes.
	ExceptionClass = "Exception"

	// TypeErrorClass is raised for arity and conversion failures at the
	// invocation boundary.
	TypeErrorClass = "TypeError"

	// RuntimeErrorClass is the default bridge target for native errors
	// that carry no class of their own.
	RuntimeErrorClass = "RuntimeError"

	// closureClass is the manufactured class backing closure adapters.
	closureClass = "Closure"
)

// Registry holds the class descriptors of one engine. It is populated
// during the declaration phase, resolved during the binding phase, and
// read-only afterwards; the engine's single-threaded contract makes the
// mutex a guard against misuse rather than a licence for concurrent
// initialization.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Descriptor
	order   []string
	frozen  bool

	// Live bound objects by ID, swept on engine close.
	live map[string]*Object
}

// newRegistry creates a registry pre-declared with the builtin exception
// hierarchy.
func newRegistry() *Registry {
	r := &Registry{
		classes: make(map[string]*Descriptor),
		live:    make(map[string]*Object),
	}

	exception := NewClass(ExceptionClass, func() interface{} { return &exceptionPayload{} }).
		Prop("message", "", Public).
		Constructor(func(recv *Object, f *Frame) error {
			if _, err := f.Arg(0).AsString(); err != nil {
				return err
			}
			return recv.Set("message", f.Arg(0))
		}, Arg{Name: "message", Optional: true, Default: ""}).
		Throwable()

	// Declare errors are impossible here: names are unique and the
	// registry is empty.
	_ = r.declare(exception)
	_ = r.declare(NewClass(TypeErrorClass, func() interface{} { return &exceptionPayload{} }).
		Extends(ExceptionClass).Throwable())
	_ = r.declare(NewClass(RuntimeErrorClass, func() interface{} { return &exceptionPayload{} }).
		Extends(ExceptionClass).Throwable())

	return r
}

// exceptionPayload backs instances of the builtin exception classes.
type exceptionPayload struct{}

// Declare collects a descriptor during the declaration phase. No engine
// calls are made. Declaring after the engine has started executing
// scripts fails with ErrRegistryFrozen.
func (r *Registry) Declare(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("declaring class %q: %w", d.name, ErrRegistryFrozen)
	}
	return r.declare(d)
}

// declare adds a descriptor without the frozen check. Callers hold mu.
func (r *Registry) declare(d *Descriptor) error {
	if _, exists := r.classes[d.name]; exists {
		return fmt.Errorf("class %q: %w", d.name, ErrAlreadyDeclared)
	}
	if d.state != StateDeclared {
		return fmt.Errorf("class %q in state %s cannot be redeclared", d.name, d.state)
	}
	d.reg = r
	r.classes[d.name] = d
	r.order = append(r.order, d.name)
	return nil
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.classes[name]
	return d, ok
}

// Classes returns all class names in declaration order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// freeze marks the end of the initialization phase.
func (r *Registry) freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// bindAll runs the binding phase: every declared descriptor is resolved
// in dependency order, parents and interfaces first. A missing
// dependency or a cycle fails the whole load; the failing class and its
// dependents are marked Failed, which is terminal.
func (r *Registry) bindAll(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	visiting := make(map[string]bool)

	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		switch d.state {
		case StateBound:
			return nil
		case StateFailed:
			return &RegistrationError{Class: d.name, Err: fmt.Errorf("class previously failed to bind")}
		}
		if visiting[d.name] {
			return &RegistrationError{Class: d.name, Err: ErrDependencyCycle}
		}
		visiting[d.name] = true
		defer delete(visiting, d.name)

		d.state = StateResolving

		deps := make([]string, 0, 1+len(d.interfaces))
		if d.parent != "" {
			deps = append(deps, d.parent)
		}
		deps = append(deps, d.interfaces...)

		for _, dep := range deps {
			pd, ok := r.classes[dep]
			if !ok {
				d.state = StateFailed
				return &RegistrationError{Class: d.name, Err: fmt.Errorf("%w: %q", ErrUnknownClass, dep)}
			}
			if err := visit(pd); err != nil {
				d.state = StateFailed
				return err
			}
		}

		if err := r.bind(d, e); err != nil {
			d.state = StateFailed
			return err
		}
		d.state = StateBound
		return nil
	}

	for _, name := range r.order {
		if err := visit(r.classes[name]); err != nil {
			return err
		}
	}
	return nil
}

// bind creates the engine-side class entry for one descriptor:
// metatable, method table with calling-convention adapters, and the
// global class table carrying the constructor.
func (r *Registry) bind(d *Descriptor, e *Engine) error {
	if d.parent != "" {
		d.parentDesc = r.classes[d.parent]
		if d.parentDesc.iface {
			return &RegistrationError{Class: d.name, Err: fmt.Errorf("parent %q is an interface", d.parent)}
		}
	}

	if d.iface {
		// Interfaces have no engine-side entry; they only constrain
		// binding of their implementors.
		return nil
	}

	if d.factory == nil {
		return &RegistrationError{Class: d.name, Err: ErrNoFactory}
	}

	// Every interface method must be defined by the class or an ancestor.
	for _, ifname := range d.interfaces {
		iface := r.classes[ifname]
		if !iface.iface {
			return &RegistrationError{Class: d.name, Err: fmt.Errorf("%q is not an interface", ifname)}
		}
		for _, m := range iface.methods {
			if _, ok := d.findMethod(m.Name); !ok {
				return &RegistrationError{
					Class: d.name,
					Err:   fmt.Errorf("missing method %q required by interface %q", m.Name, ifname),
				}
			}
		}
	}

	if d.throwable && !d.derivesFrom(ExceptionClass) {
		return &RegistrationError{Class: d.name, Err: ErrInvalidExceptionClass}
	}

	for _, m := range d.methods {
		if err := validateArgs("method "+m.Name, m.Args); err != nil {
			return &RegistrationError{Class: d.name, Err: err}
		}
	}
	if d.ctor != nil {
		if err := validateArgs("constructor", d.ctor.Args); err != nil {
			return &RegistrationError{Class: d.name, Err: err}
		}
	}

	L := e.L

	// Method table: ancestors first so nearer declarations win.
	d.methodTab = make(map[string]lua.LValue)
	for _, c := range d.chain() {
		for _, m := range c.methods {
			if m.Handler == nil {
				continue
			}
			d.methodTab[m.Name] = L.NewFunction(e.methodShim(d, c, m))
		}
	}

	mt := L.NewTable()
	L.SetField(mt, "__index", L.NewFunction(e.indexShim(d)))
	L.SetField(mt, "__newindex", L.NewFunction(e.newindexShim(d)))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("<" + d.name + ">"))
		return 1
	}))
	if d.name == closureClass {
		L.SetField(mt, "__call", L.NewFunction(e.closureCallShim()))
	}
	d.mt = mt

	classTab := L.NewTable()
	L.SetField(classTab, "new", L.NewFunction(e.ctorShim(d)))
	L.SetGlobal(d.name, classTab)

	return nil
}

// track registers a live bound object for the close-time sweep.
func (r *Registry) track(o *Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[o.id] = o
}

// drop removes a destroyed object from the live set.
func (r *Registry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// destroyAll destroys every live object. Destructors run at most once
// per object; errors are collected but do not stop the sweep.
func (r *Registry) destroyAll() {
	r.mu.Lock()
	objs := make([]*Object, 0, len(r.live))
	for _, o := range r.live {
		objs = append(objs, o)
	}
	r.mu.Unlock()

	for _, o := range objs {
		o.Destroy()
	}
}
