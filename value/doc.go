// Package value provides the tagged-value layer between Go and the Lua
// engine. It wraps engine values with an explicit owned/borrowed
// distinction and implements the bidirectional conversions used by every
// other part of luagate.
//
// # Ownership
//
// The engine garbage-collects its values once control returns to it.
// Native code that needs a reference-typed value (table, object,
// function) to outlive the current call must take ownership, which pins
// the value in a per-state registry on the Go side until released:
//
//	v := value.Borrow(L, lv)     // valid for the current call only
//	kept := v.IntoOwned()        // pins the value; survives the call
//	defer kept.Release()         // unpin exactly once
//
// Scalars (nil, bool, number, string) are plain values in the engine and
// need no pinning; Release on them is a no-op.
//
// # Conversions
//
// Conversions to the engine are total: any Go value the constructors
// accept produces a valid engine value. Conversions from the engine are
// partial and fail with TypeMismatchError, OutOfRangeError or UTF8Error.
// Composite conversions recurse element-wise and stop at the first
// failing element.
package value
