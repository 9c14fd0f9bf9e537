// Package bind exposes Go functions, classes, properties and exceptions
// to an embedded Lua engine.
//
// Classes are registered in two phases. Declaration collects descriptors
// without touching the engine; binding happens once, when a Module is
// attached to an Engine, resolving parents and interfaces in dependency
// order and installing metatables, methods and property defaults:
//
//	counter := bind.NewClass("Counter", func() any { return &counter{} }).
//	    Prop("value", 0, bind.Public).
//	    Method("increment", incr)
//
//	mod := bind.NewModule("demo", "1.0.0").Class(counter)
//	eng, _ := bind.New()
//	defer eng.Close()
//	if err := mod.Attach(eng); err != nil {
//	    log.Fatal(err)
//	}
//
// After binding, scripts construct instances with Counter.new() and call
// methods with the usual colon syntax. Every crossing from the engine
// into Go goes through a single invocation shim that validates arity,
// converts arguments, traps panics and bridges Go errors into engine
// exceptions; no Go panic ever escapes into engine code.
//
// # Threading
//
// The engine interpreter is single-threaded. Descriptors and registries
// are mutated only while a module attaches (the engine's init phase) and
// are read-only afterwards. No engine value may be retained past the
// call that produced it unless explicitly owned via the value package.
package bind
