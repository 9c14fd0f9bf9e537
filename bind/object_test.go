package bind

import (
	"errors"
	"testing"

	"github.com/dshills/luagate/value"
)

func TestPropertyDefaultsSetBeforeConstructor(t *testing.T) {
	e := newTestEngine(t)

	var seen string
	cls := NewClass("Greeting", newPayload).
		Prop("name", "anonymous", Public).
		Constructor(func(recv *Object, f *Frame) error {
			v, err := recv.Get("name")
			if err != nil {
				return err
			}
			seen, err = v.AsString()
			return err
		})
	attach(t, e, NewModule("m", "1.0.0").Class(cls))

	run(t, e, `g = Greeting.new()`)
	if seen != "anonymous" {
		t.Errorf("constructor saw name = %q, want default %q", seen, "anonymous")
	}
}

func TestReferenceDefaultsNotShared(t *testing.T) {
	e := newTestEngine(t)

	cls := NewClass("Tagged", newPayload).
		Prop("tags", []string{"base"}, Public)
	attach(t, e, NewModule("m", "1.0.0").Class(cls))

	run(t, e, `
		a = Tagged.new()
		b = Tagged.new()
		table.insert(a.tags, "extra")
		na = #a.tags
		nb = #b.tags
	`)
	if got := globalInt(t, e, "na"); got != 2 {
		t.Errorf("mutated instance has %d tags, want 2", got)
	}
	if got := globalInt(t, e, "nb"); got != 1 {
		t.Errorf("untouched instance has %d tags, want 1", got)
	}
}

func TestPropertyReadWriteFromScript(t *testing.T) {
	e := newTestEngine(t)
	attach(t, e, NewModule("m", "1.0.0").Class(counterClass()))

	run(t, e, `
		c = Counter.new()
		before = c.value
		c.value = 10
		after = c.value
	`)
	if got := globalInt(t, e, "before"); got != 0 {
		t.Errorf("default value = %d, want 0", got)
	}
	if got := globalInt(t, e, "after"); got != 10 {
		t.Errorf("value after write = %d, want 10", got)
	}
}

func TestUndeclaredPropertyRejected(t *testing.T) {
	e := newTestEngine(t)
	attach(t, e, NewModule("m", "1.0.0").Class(counterClass()))

	run(t, e, `
		c = Counter.new()
		ok = pcall(function() c.bogus = 1 end)
	`)
	if globalBool(t, e, "ok") {
		t.Error("write to undeclared property succeeded, want rejection")
	}

	o := globalObject(t, e, "c")
	err := o.Set("bogus", value.FromInt(1))
	if !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Set(bogus) error = %v, want ErrUnknownProperty", err)
	}
	if _, err := o.Get("bogus"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Get(bogus) error = %v, want ErrUnknownProperty", err)
	}
}

func TestPrivatePropertyVisibility(t *testing.T) {
	e := newTestEngine(t)

	vault := NewClass("Vault", newPayload).
		Prop("secret", "s3cr3t", Private).
		Method("reveal", func(recv *Object, f *Frame) error {
			v, err := recv.Get("secret")
			if err != nil {
				return err
			}
			return f.Return(v)
		})
	attach(t, e, NewModule("m", "1.0.0").Class(vault))

	run(t, e, `
		v = Vault.new()
		revealed = v:reveal()
		ok, err = pcall(function() return v.secret end)
		denied = not ok
		cls = tostring(err)
	`)

	// The declaring class reads it freely.
	if got := globalString(t, e, "revealed"); got != "s3cr3t" {
		t.Errorf("reveal() = %q, want %q", got, "s3cr3t")
	}
	// Script code outside any method does not.
	if !globalBool(t, e, "denied") {
		t.Error("direct script read of private property succeeded, want denial")
	}
	if got := globalString(t, e, "cls"); got != "<"+ExceptionClass+">" {
		t.Errorf("denial class = %q, want %q", got, "<"+ExceptionClass+">")
	}

	// Native access outside any method context is denied too.
	o := globalObject(t, e, "v")
	if _, err := o.Get("secret"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("native Get(secret) error = %v, want ErrAccessDenied", err)
	}
}

func TestProtectedPropertyVisibility(t *testing.T) {
	e := newTestEngine(t)

	base := NewClass("Account", newPayload).
		Prop("balance", 100, Protected)
	sub := NewClass("Savings", newPayload).
		Extends("Account").
		Method("balanceOf", func(recv *Object, f *Frame) error {
			v, err := recv.Get("balance")
			if err != nil {
				return err
			}
			return f.Return(v)
		})
	attach(t, e, NewModule("m", "1.0.0").Class(base).Class(sub))

	run(t, e, `
		s = Savings.new()
		bal = s:balanceOf()
		ok = pcall(function() return s.balance end)
		denied = not ok
	`)
	if got := globalInt(t, e, "bal"); got != 100 {
		t.Errorf("subclass read = %d, want 100", got)
	}
	if !globalBool(t, e, "denied") {
		t.Error("outside read of protected property succeeded, want denial")
	}
}

func TestPrivateShadowedBySubclassDenied(t *testing.T) {
	e := newTestEngine(t)

	// The subclass method runs in its own class context, which must not
	// reach the parent's private property.
	base := NewClass("Sealed", newPayload).
		Prop("inner", "hidden", Private)
	sub := NewClass("Peeker", newPayload).
		Extends("Sealed").
		Method("peek", func(recv *Object, f *Frame) error {
			v, err := recv.Get("inner")
			if err != nil {
				return err
			}
			return f.Return(v)
		})
	attach(t, e, NewModule("m", "1.0.0").Class(base).Class(sub))

	run(t, e, `
		p = Peeker.new()
		ok = pcall(function() return p:peek() end)
		denied = not ok
	`)
	if !globalBool(t, e, "denied") {
		t.Error("subclass method read parent private property, want denial")
	}
}

func TestInheritedMethodReadsOwnPrivate(t *testing.T) {
	e := newTestEngine(t)

	// A method declared on the parent runs in the parent's class
	// context even when invoked on a subclass instance.
	base := NewClass("Sealed", newPayload).
		Prop("inner", "hidden", Private).
		Method("show", func(recv *Object, f *Frame) error {
			v, err := recv.Get("inner")
			if err != nil {
				return err
			}
			return f.Return(v)
		})
	sub := NewClass("Drawer", newPayload).
		Extends("Sealed")
	attach(t, e, NewModule("m", "1.0.0").Class(base).Class(sub))

	run(t, e, `
		d = Drawer.new()
		got = d:show()
	`)
	if got := globalString(t, e, "got"); got != "hidden" {
		t.Errorf("inherited show() = %q, want %q", got, "hidden")
	}
}

func TestDestructorRunsExactlyOnce(t *testing.T) {
	e := newTestEngine(t)

	destroyed := 0
	cls := NewClass("Handle", newPayload).
		Destructor(func(payload interface{}) { destroyed++ })
	attach(t, e, NewModule("m", "1.0.0").Class(cls))

	run(t, e, `h = Handle.new()`)
	o := globalObject(t, e, "h")

	o.Destroy()
	o.Destroy()
	if destroyed != 1 {
		t.Fatalf("destructor ran %d times after explicit Destroy, want 1", destroyed)
	}
	if !o.Destroyed() {
		t.Error("Destroyed() = false after Destroy")
	}

	// Close must not run it again for an already-destroyed object.
	e.Close()
	if destroyed != 1 {
		t.Errorf("destructor ran %d times after Close, want 1", destroyed)
	}
}

func TestCloseDestroysLiveObjects(t *testing.T) {
	e := newTestEngine(t)

	destroyed := 0
	cls := NewClass("Handle", newPayload).
		Destructor(func(payload interface{}) { destroyed++ })
	attach(t, e, NewModule("m", "1.0.0").Class(cls))

	run(t, e, `a = Handle.new(); b = Handle.new()`)
	e.Close()
	if destroyed != 2 {
		t.Errorf("destructor ran %d times on Close, want 2", destroyed)
	}
}

func TestInheritedDestructor(t *testing.T) {
	e := newTestEngine(t)

	var order []string
	base := NewClass("Res", newPayload).
		Destructor(func(payload interface{}) { order = append(order, "base") })
	sub := NewClass("SubRes", newPayload).Extends("Res")
	attach(t, e, NewModule("m", "1.0.0").Class(base).Class(sub))

	run(t, e, `r = SubRes.new()`)
	globalObject(t, e, "r").Destroy()

	if len(order) != 1 || order[0] != "base" {
		t.Errorf("destructor calls = %v, want [base]", order)
	}
}

func TestInstanceOf(t *testing.T) {
	e := newTestEngine(t)

	iface := NewInterface("Walker", "walk")
	base := NewClass("Animal", newPayload).
		Method("walk", func(recv *Object, f *Frame) error { return nil })
	sub := NewClass("Dog", newPayload).Extends("Animal").Implements("Walker")
	attach(t, e, NewModule("m", "1.0.0").Class(iface).Class(base).Class(sub))

	run(t, e, `d = Dog.new()`)
	o := globalObject(t, e, "d")

	tests := []struct {
		name string
		want bool
	}{
		{"Dog", true},
		{"Animal", true},
		{"Walker", true},
		{"Counter", false},
		{ExceptionClass, false},
	}
	for _, tt := range tests {
		if got := o.InstanceOf(tt.name); got != tt.want {
			t.Errorf("InstanceOf(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestObjectAsDowncast(t *testing.T) {
	e := newTestEngine(t)

	base := NewClass("Animal", newPayload)
	sub := NewClass("Dog", newPayload).Extends("Animal")
	attach(t, e, NewModule("m", "1.0.0").Class(base).Class(sub))

	run(t, e, `d = Dog.new(); a = Animal.new()`)

	dog := e.L.GetGlobal("d")
	if _, err := ObjectAs(value.Borrow(e.L, dog), base); err != nil {
		t.Errorf("ObjectAs(dog, Animal) error = %v, want nil", err)
	}

	animal := e.L.GetGlobal("a")
	if _, err := ObjectAs(value.Borrow(e.L, animal), sub); err == nil {
		t.Error("ObjectAs(animal, Dog) error = nil, want downcast failure")
	}
}

func TestObjectOfNonObject(t *testing.T) {
	_, err := ObjectOf(value.FromInt(7))
	var mismatch *value.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("ObjectOf(7) error = %T, want *TypeMismatchError", err)
	}
	if mismatch.Expected != value.KindObject {
		t.Errorf("Expected kind = %s, want %s", mismatch.Expected, value.KindObject)
	}
}

func TestNewInstance(t *testing.T) {
	e := newTestEngine(t)
	iface := NewInterface("Walker", "walk")
	cls := counterClass().Implements("Walker").
		Method("walk", func(recv *Object, f *Frame) error { return nil })
	attach(t, e, NewModule("m", "1.0.0").Class(iface).Class(cls))

	o, err := e.NewInstance("Counter")
	if err != nil {
		t.Fatalf("NewInstance(Counter) error: %v", err)
	}
	v, err := o.Get("value")
	if err != nil {
		t.Fatalf("Get(value) error: %v", err)
	}
	if n, _ := v.AsInt64(); n != 0 {
		t.Errorf("default value = %d, want 0", n)
	}

	if _, err := e.NewInstance("NoSuchClass"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("NewInstance(NoSuchClass) error = %v, want ErrUnknownClass", err)
	}
	if _, err := e.NewInstance("Walker"); err == nil {
		t.Error("NewInstance(Walker) error = nil, want interface rejection")
	}
}

func TestObjectIdentity(t *testing.T) {
	e := newTestEngine(t)
	attach(t, e, NewModule("m", "1.0.0").Class(counterClass()))

	run(t, e, `a = Counter.new(); b = Counter.new()`)
	a := globalObject(t, e, "a")
	b := globalObject(t, e, "b")
	if a.ID() == b.ID() {
		t.Error("two instances share an ID")
	}
	if a.Class().Name() != "Counter" {
		t.Errorf("Class().Name() = %q, want Counter", a.Class().Name())
	}
}
