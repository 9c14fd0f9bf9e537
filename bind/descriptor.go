package bind

import (
	lua "github.com/yuin/gopher-lua"
)

// Arg describes one declared argument of an exported function, method or
// constructor. Optional arguments must trail the required ones; a
// missing optional argument is filled from its Go default.
type Arg struct {
	Name     string
	Optional bool
	Default  interface{}
}

// FuncHandler is the native body of an exported function. Arguments
// arrive through the frame already validated and counted; the result is
// written to the frame's return slot. A non-nil error is bridged to an
// engine exception.
type FuncHandler func(f *Frame) error

// MethodHandler is the native body of a method or constructor. The
// receiver is the bound object the engine invoked the method on.
type MethodHandler func(recv *Object, f *Frame) error

// Method pairs a method name with its native handler and argument
// specification.
type Method struct {
	Name    string
	Args    []Arg
	Handler MethodHandler
}

// Func is an exported module-level function.
type Func struct {
	Name    string
	Args    []Arg
	Handler FuncHandler
}

// Descriptor is the compile-time metadata describing one engine-exposed
// class: name, optional parent, implemented interfaces, declared
// properties with defaults, methods and lifecycle hooks. Descriptors are
// built statically and bound to an engine when a Module attaches.
type Descriptor struct {
	name       string
	parent     string
	interfaces []string
	props      []Property
	methods    []*Method
	ctor       *Method
	dtor       func(payload interface{})
	factory    func() interface{}
	iface      bool
	throwable  bool

	// Binding artifacts, set during the binding phase.
	state      ClassState
	reg        *Registry
	parentDesc *Descriptor
	mt         *lua.LTable
	methodTab  map[string]lua.LValue
}

// NewClass declares a class. The factory must produce the zero native
// payload for a new instance; the engine allocates the backing object
// before any declared constructor runs, so payloads must be
// default-constructible.
func NewClass(name string, factory func() interface{}) *Descriptor {
	return &Descriptor{
		name:    name,
		factory: factory,
		state:   StateDeclared,
	}
}

// NewInterface declares an interface: a named set of methods with no
// factory and no instances. Classes implementing it must define every
// listed method by binding time.
func NewInterface(name string, methodNames ...string) *Descriptor {
	d := &Descriptor{
		name:  name,
		iface: true,
		state: StateDeclared,
	}
	for _, mn := range methodNames {
		d.methods = append(d.methods, &Method{Name: mn})
	}
	return d
}

// Extends sets the parent class by name.
func (d *Descriptor) Extends(parent string) *Descriptor {
	d.parent = parent
	return d
}

// Implements adds implemented interfaces by name.
func (d *Descriptor) Implements(names ...string) *Descriptor {
	d.interfaces = append(d.interfaces, names...)
	return d
}

// Prop declares a property with a default value and visibility.
func (d *Descriptor) Prop(name string, def interface{}, vis Visibility) *Descriptor {
	d.props = append(d.props, Property{Name: name, Default: def, Visibility: vis})
	return d
}

// Method declares a method with its argument specification.
func (d *Descriptor) Method(name string, h MethodHandler, args ...Arg) *Descriptor {
	d.methods = append(d.methods, &Method{Name: name, Args: args, Handler: h})
	return d
}

// Constructor declares the constructor hook. The backing object already
// exists with all property defaults in place when it runs.
func (d *Descriptor) Constructor(h MethodHandler, args ...Arg) *Descriptor {
	d.ctor = &Method{Name: "new", Args: args, Handler: h}
	return d
}

// Destructor declares the destructor hook, invoked exactly once per
// instance when the object is destroyed or the engine closes.
func (d *Descriptor) Destructor(fn func(payload interface{})) *Descriptor {
	d.dtor = fn
	return d
}

// Throwable marks the class as an exception class. Binding verifies the
// class extends the builtin Exception class.
func (d *Descriptor) Throwable() *Descriptor {
	d.throwable = true
	return d
}

// Name returns the class name.
func (d *Descriptor) Name() string {
	return d.name
}

// Parent returns the parent class name, empty for root classes.
func (d *Descriptor) Parent() string {
	return d.parent
}

// State returns the descriptor's lifecycle state.
func (d *Descriptor) State() ClassState {
	return d.state
}

// IsInterface reports whether the descriptor declares an interface.
func (d *Descriptor) IsInterface() bool {
	return d.iface
}

// Properties returns the declared properties, parents first, in
// declaration order.
func (d *Descriptor) Properties() []Property {
	var out []Property
	for _, c := range d.chain() {
		out = append(out, c.props...)
	}
	return out
}

// chain returns the class ancestry, root first. Only valid once parents
// are resolved.
func (d *Descriptor) chain() []*Descriptor {
	var out []*Descriptor
	for c := d; c != nil; c = c.parentDesc {
		out = append([]*Descriptor{c}, out...)
	}
	return out
}

// findProperty locates a property in the ancestry and reports the class
// that declared it. Nearest declaration wins.
func (d *Descriptor) findProperty(name string) (Property, *Descriptor, bool) {
	for c := d; c != nil; c = c.parentDesc {
		for _, p := range c.props {
			if p.Name == name {
				return p, c, true
			}
		}
	}
	return Property{}, nil, false
}

// findCtor locates the nearest declared constructor in the ancestry and
// the class that declared it. Only valid once parents are resolved.
func (d *Descriptor) findCtor() (*Method, *Descriptor) {
	for c := d; c != nil; c = c.parentDesc {
		if c.ctor != nil {
			return c.ctor, c
		}
	}
	return nil, nil
}

// findMethod locates a method in the ancestry. Nearest declaration wins.
func (d *Descriptor) findMethod(name string) (*Method, bool) {
	for c := d; c != nil; c = c.parentDesc {
		for _, m := range c.methods {
			if m.Name == name {
				return m, true
			}
		}
	}
	return nil, false
}

// derivesFrom reports whether the class ancestry contains name.
func (d *Descriptor) derivesFrom(name string) bool {
	for c := d; c != nil; c = c.parentDesc {
		if c.name == name {
			return true
		}
	}
	return false
}

// interfaceNames collects implemented interfaces across the ancestry.
func (d *Descriptor) interfaceNames() []string {
	var out []string
	for c := d; c != nil; c = c.parentDesc {
		out = append(out, c.interfaces...)
	}
	return out
}
