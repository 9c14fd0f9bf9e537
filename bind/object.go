package bind

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// Object is an engine object instance backed by a native payload. The
// engine owns the instance's lifetime; the native payload is destroyed
// exactly once, either explicitly or when the engine closes.
type Object struct {
	id        string
	desc      *Descriptor
	eng       *Engine
	payload   interface{}
	props     *lua.LTable
	ud        *lua.LUserData
	destroyed bool
}

// newObject allocates a bound object of the given class: the native
// payload is produced by the class factory and every declared property
// (parents first) is populated from its default before any constructor
// hook runs. Each instance gets a fresh copy of reference-typed
// defaults.
func newObject(e *Engine, d *Descriptor) (*Object, error) {
	if d.state != StateBound {
		return nil, fmt.Errorf("class %q in state %s: %w", d.name, d.state, ErrClassNotBound)
	}
	if d.iface {
		return nil, fmt.Errorf("interface %q cannot be instantiated", d.name)
	}

	o := &Object{
		id:      uuid.New().String(),
		desc:    d,
		eng:     e,
		payload: d.factory(),
		props:   e.L.NewTable(),
	}

	for _, p := range d.Properties() {
		def := value.FromGo(e.L, p.Default)
		o.props.RawSetString(p.Name, def.Raw())
		def.Release()
	}

	ud := e.L.NewUserData()
	ud.Value = o
	e.L.SetMetatable(ud, d.mt)
	o.ud = ud

	d.reg.track(o)
	return o, nil
}

// NewInstance creates an instance of a bound class from native code,
// bypassing any declared constructor hook. Property defaults are in
// place; the caller fills in the rest.
func (e *Engine) NewInstance(class string) (*Object, error) {
	d, ok := e.reg.Get(class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return newObject(e, d)
}

// ID returns the instance's unique identifier.
func (o *Object) ID() string {
	return o.id
}

// Class returns the object's class descriptor.
func (o *Object) Class() *Descriptor {
	return o.desc
}

// Payload returns the native payload backing the object.
func (o *Object) Payload() interface{} {
	return o.payload
}

// Value returns a borrowed engine value for the object, valid for the
// current call.
func (o *Object) Value() value.Value {
	return value.Borrow(o.eng.L, o.ud)
}

// InstanceOf reports whether the object's class ancestry or implemented
// interfaces include name.
func (o *Object) InstanceOf(name string) bool {
	if o.desc.derivesFrom(name) {
		return true
	}
	for _, ifname := range o.desc.interfaceNames() {
		if ifname == name {
			return true
		}
		if iface, ok := o.desc.reg.Get(ifname); ok && iface.derivesFrom(name) {
			return true
		}
	}
	return false
}

// Get reads a declared property, enforcing visibility against the
// calling context. Reads of private properties from outside the
// declaring class fail with ErrAccessDenied.
func (o *Object) Get(name string) (value.Value, error) {
	if err := o.checkAccess(name); err != nil {
		return value.Nil(), err
	}
	return value.Borrow(o.eng.L, o.props.RawGetString(name)), nil
}

// Set writes a declared property, enforcing visibility against the
// calling context.
func (o *Object) Set(name string, v value.Value) error {
	if err := o.checkAccess(name); err != nil {
		return err
	}
	o.props.RawSetString(name, v.Raw())
	return nil
}

// checkAccess validates a property access against the engine's current
// class context, maintained by the invocation shim.
func (o *Object) checkAccess(name string) error {
	p, declaring, ok := o.desc.findProperty(name)
	if !ok {
		return fmt.Errorf("%w: %q on class %q", ErrUnknownProperty, name, o.desc.name)
	}

	switch p.Visibility {
	case Public:
		return nil
	case Protected:
		cur := o.eng.currentClass()
		if cur == "" {
			return fmt.Errorf("protected property %q of class %q: %w", name, declaring.name, ErrAccessDenied)
		}
		if cd, ok := o.desc.reg.Get(cur); ok && cd.derivesFrom(declaring.name) {
			return nil
		}
		return fmt.Errorf("protected property %q of class %q: %w", name, declaring.name, ErrAccessDenied)
	case Private:
		if o.eng.currentClass() == declaring.name {
			return nil
		}
		return fmt.Errorf("private property %q of class %q: %w", name, declaring.name, ErrAccessDenied)
	default:
		return fmt.Errorf("property %q: unknown visibility: %w", name, ErrAccessDenied)
	}
}

// Destroy runs the destructor hook and releases the native payload.
// Destruction happens at most once; later calls are no-ops.
func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true

	for c := o.desc; c != nil; c = c.parentDesc {
		if c.dtor != nil {
			c.dtor(o.payload)
			break
		}
	}

	o.desc.reg.drop(o.id)
	o.payload = nil
}

// Destroyed reports whether the native payload has been released.
func (o *Object) Destroyed() bool {
	return o.destroyed
}

// ObjectOf extracts the bound object behind an engine value. Values that
// are not bound objects fail with a TypeMismatchError.
func ObjectOf(v value.Value) (*Object, error) {
	ud, ok := v.Raw().(*lua.LUserData)
	if !ok {
		return nil, &value.TypeMismatchError{Expected: value.KindObject, Found: v.Kind()}
	}
	o, ok := ud.Value.(*Object)
	if !ok {
		return nil, &value.TypeMismatchError{Expected: value.KindObject, Found: value.KindObject}
	}
	return o, nil
}

// ObjectAs extracts a bound object and downcast-checks it against the
// expected class descriptor.
func ObjectAs(v value.Value, d *Descriptor) (*Object, error) {
	o, err := ObjectOf(v)
	if err != nil {
		return nil, err
	}
	if !o.InstanceOf(d.name) {
		return nil, fmt.Errorf("object of class %q is not a %q", o.desc.name, d.name)
	}
	return o, nil
}
