package bind

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// Engine wraps the Lua state together with the class registry, the
// pending-exception slot and the property-access context.
//
// IMPORTANT: the underlying engine state is not goroutine-safe. All
// operations on an Engine must come from a single goroutine, or callers
// must synchronize externally. The mutex here protects against
// concurrent misuse from Go code; script execution itself is inherently
// single-threaded.
type Engine struct {
	L *lua.LState

	mu sync.Mutex

	opts        Options
	reg         *Registry
	execTimeout time.Duration

	// Access context: class names of the native methods currently on
	// the call stack, innermost last.
	classStack []string

	// Active-exception slot, cleared by CheckPending.
	pending error

	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOptions replaces the engine's options wholesale, typically with
// the result of LoadOptions.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		e.opts = o
	}
}

// WithClosures toggles closure adapter support.
func WithClosures(enabled bool) Option {
	return func(e *Engine) {
		e.opts.EnableClosures = enabled
	}
}

// WithExecTimeout bounds each script execution. Zero means no limit. A
// script that overruns is aborted and surfaces as a script error. Code
// that never re-enters the interpreter (a native handler stuck in Go)
// cannot be interrupted.
func WithExecTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.execTimeout = d
	}
}

// New creates an engine with the builtin exception classes bound and
// only the safe script libraries opened.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		opts: DefaultOptions(),
		reg:  newRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.L = lua.NewState(lua.Options{
		SkipOpenLibs: true, // Opened selectively below
	})
	e.openLibraries()

	// Builtins have no external dependencies; bind them up front so the
	// exception bridge works before any module attaches.
	if err := e.reg.bindAll(e); err != nil {
		e.L.Close()
		return nil, err
	}

	return e, nil
}

// openLibraries opens the configured engine standard libraries. The io,
// os, debug and package modules are never opened.
func (e *Engine) openLibraries() {
	for _, name := range e.opts.Libraries {
		switch name {
		case "base":
			lua.OpenBase(e.L)
		case "table":
			lua.OpenTable(e.L)
		case "string":
			lua.OpenString(e.L)
		case "math":
			lua.OpenMath(e.L)
		}
	}
}

// Registry returns the engine's class registry.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// DoString executes a script. Execution is synchronous and panic-safe;
// a script error comes back as a *Thrown.
func (e *Engine) DoString(code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.reg.freeze()
	defer e.withDeadline()()

	return e.withRecovery(func() error {
		if err := e.L.DoString(code); err != nil {
			return e.thrownFrom(err)
		}
		return nil
	})
}

// DoFile executes a script file.
func (e *Engine) DoFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.reg.freeze()
	defer e.withDeadline()()

	return e.withRecovery(func() error {
		if err := e.L.DoFile(path); err != nil {
			return e.thrownFrom(err)
		}
		return nil
	})
}

// CallGlobal calls a global script function with the given arguments and
// returns its results as borrowed values. A script error comes back as
// a *Thrown and is also left in the pending slot for CheckPending.
func (e *Engine) CallGlobal(fn string, args ...value.Value) ([]value.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	e.reg.freeze()

	fnVal := e.L.GetGlobal(fn)
	if fnVal == lua.LNil {
		return nil, fmt.Errorf("function %q not found", fn)
	}
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%q is not a function (got %s)", fn, fnVal.Type())
	}
	defer e.withDeadline()()

	return e.callValue(fnVal, args)
}

// CallValue invokes a callable engine value with the given arguments.
// Used for script callbacks handed to native code within a single
// invocation.
func (e *Engine) CallValue(fn value.Value, args ...value.Value) ([]value.Value, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if fn.Kind() != value.KindFunction && fn.Kind() != value.KindObject {
		return nil, fmt.Errorf("value of kind %s is not callable", fn.Kind())
	}
	return e.callValue(fn.Raw(), args)
}

// callValue pushes and calls with stack-top bookkeeping. On a script
// error the pending slot is set.
func (e *Engine) callValue(fn lua.LValue, args []value.Value) ([]value.Value, error) {
	stackTop := e.L.GetTop()

	e.L.Push(fn)
	for _, arg := range args {
		e.L.Push(arg.Raw())
	}

	var callErr error
	rerr := e.withRecovery(func() error {
		callErr = e.L.PCall(len(args), lua.MultRet, nil)
		return nil
	})
	if rerr != nil {
		callErr = rerr
	}

	if callErr != nil {
		thrown := e.thrownFrom(callErr)
		e.pending = thrown
		return nil, thrown
	}

	nRet := e.L.GetTop() - stackTop
	if nRet <= 0 {
		return []value.Value{}, nil
	}
	results := make([]value.Value, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = value.Borrow(e.L, e.L.Get(stackTop+i+1))
	}
	e.L.Pop(nRet)

	return results, nil
}

// withDeadline arms the execution deadline for one script run and
// returns the disarm function.
func (e *Engine) withDeadline() func() {
	if e.execTimeout <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.execTimeout)
	e.L.SetContext(ctx)
	return func() {
		cancel()
		e.L.RemoveContext()
	}
}

// withRecovery executes fn, converting an engine panic to an error.
func (e *Engine) withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return fn()
}

// currentClass returns the class whose native method is innermost on the
// call stack, or empty outside any method.
func (e *Engine) currentClass() string {
	if len(e.classStack) == 0 {
		return ""
	}
	return e.classStack[len(e.classStack)-1]
}

// pushClass/popClass maintain the property-access context around method
// invocations.
func (e *Engine) pushClass(name string) {
	e.classStack = append(e.classStack, name)
}

func (e *Engine) popClass() {
	if len(e.classStack) > 0 {
		e.classStack = e.classStack[:len(e.classStack)-1]
	}
}

// IsClosed reports whether the engine has been closed.
func (e *Engine) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close destroys all live bound objects (running each destructor exactly
// once), drops any pins still held against the state and releases the
// engine state. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.reg.destroyAll()
	value.ReleaseAll(e.L)
	e.L.Close()
	e.closed = true
	return nil
}
