package bind

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/luagate/value"
)

// newTestEngine creates an engine and registers cleanup.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// attach attaches a module, failing the test on error.
func attach(t *testing.T, e *Engine, m *Module) {
	t.Helper()
	if err := m.Attach(e); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
}

// run executes a script, failing the test on error.
func run(t *testing.T, e *Engine, code string) {
	t.Helper()
	if err := e.DoString(code); err != nil {
		t.Fatalf("DoString() error: %v", err)
	}
}

// globalString reads a global the script left behind.
func globalString(t *testing.T, e *Engine, name string) string {
	t.Helper()
	s, ok := e.L.GetGlobal(name).(glua.LString)
	if !ok {
		t.Fatalf("global %q is %s, want string", name, e.L.GetGlobal(name).Type())
	}
	return string(s)
}

// globalInt reads a numeric global the script left behind.
func globalInt(t *testing.T, e *Engine, name string) int64 {
	t.Helper()
	n, ok := e.L.GetGlobal(name).(glua.LNumber)
	if !ok {
		t.Fatalf("global %q is %s, want number", name, e.L.GetGlobal(name).Type())
	}
	return int64(n)
}

// globalBool reads a boolean global the script left behind.
func globalBool(t *testing.T, e *Engine, name string) bool {
	t.Helper()
	b, ok := e.L.GetGlobal(name).(glua.LBool)
	if !ok {
		t.Fatalf("global %q is %s, want boolean", name, e.L.GetGlobal(name).Type())
	}
	return bool(b)
}

// globalObject reads a bound object global the script left behind.
func globalObject(t *testing.T, e *Engine, name string) *Object {
	t.Helper()
	o, err := ObjectOf(value.Borrow(e.L, e.L.GetGlobal(name)))
	if err != nil {
		t.Fatalf("global %q: %v", name, err)
	}
	return o
}

// counterPayload backs the Counter test class.
type counterPayload struct{}

// counterClass declares a class with one public property and one method,
// the smallest class that exercises the whole instance path.
func counterClass() *Descriptor {
	return NewClass("Counter", func() interface{} { return &counterPayload{} }).
		Prop("value", 0, Public).
		Method("increment", func(recv *Object, f *Frame) error {
			cur, err := recv.Get("value")
			if err != nil {
				return err
			}
			n, err := cur.AsInt64()
			if err != nil {
				return err
			}
			if err := recv.Set("value", value.FromInt(n+1)); err != nil {
				return err
			}
			return f.Return(value.FromInt(n + 1))
		})
}

func TestNewBindsBuiltins(t *testing.T) {
	e := newTestEngine(t)

	for _, name := range []string{ExceptionClass, TypeErrorClass, RuntimeErrorClass} {
		d, ok := e.Registry().Get(name)
		if !ok {
			t.Fatalf("builtin class %q not declared", name)
		}
		if d.State() != StateBound {
			t.Errorf("class %q state = %s, want %s", name, d.State(), StateBound)
		}
		if e.L.GetGlobal(name) == glua.LNil {
			t.Errorf("class %q has no global table", name)
		}
	}
}

func TestUnsafeLibrariesNotOpened(t *testing.T) {
	e := newTestEngine(t)

	for _, name := range []string{"io", "os", "debug", "require"} {
		if e.L.GetGlobal(name) != glua.LNil {
			t.Errorf("global %q should not be available", name)
		}
	}
	// The configured safe ones are.
	for _, name := range []string{"pcall", "table", "string", "math"} {
		if e.L.GetGlobal(name) == glua.LNil {
			t.Errorf("global %q should be available", name)
		}
	}
}

func TestDoStringScriptError(t *testing.T) {
	e := newTestEngine(t)

	err := e.DoString(`error("script failure")`)
	if err == nil {
		t.Fatal("DoString() error = nil, want error")
	}
	var thrown *Thrown
	if !errors.As(err, &thrown) {
		t.Fatalf("DoString() error = %T, want *Thrown", err)
	}
	if thrown.Class != RuntimeErrorClass {
		t.Errorf("Class = %q, want %q", thrown.Class, RuntimeErrorClass)
	}
	if !strings.Contains(thrown.Message, "script failure") {
		t.Errorf("Message = %q, want it to contain %q", thrown.Message, "script failure")
	}
}

func TestDoFile(t *testing.T) {
	e := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte("filevar = 11"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := e.DoFile(path); err != nil {
		t.Fatalf("DoFile() error: %v", err)
	}
	if got := globalInt(t, e, "filevar"); got != 11 {
		t.Errorf("filevar = %d, want 11", got)
	}

	if err := e.DoFile(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Error("DoFile(absent) error = nil, want error")
	}
}

func TestCallGlobal(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `function double(n) return n * 2 end`)

	results, err := e.CallGlobal("double", value.FromInt(21))
	if err != nil {
		t.Fatalf("CallGlobal() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("CallGlobal() returned %d values, want 1", len(results))
	}
	got, err := results[0].AsInt64()
	if err != nil {
		t.Fatalf("AsInt64() error: %v", err)
	}
	if got != 42 {
		t.Errorf("double(21) = %d, want 42", got)
	}
}

func TestCallGlobalMultipleReturns(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `function pair() return "a", "b" end`)

	results, err := e.CallGlobal("pair")
	if err != nil {
		t.Fatalf("CallGlobal() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("CallGlobal() returned %d values, want 2", len(results))
	}
}

func TestCallGlobalNotFound(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.CallGlobal("missing"); err == nil {
		t.Error("CallGlobal(missing) error = nil, want error")
	}

	run(t, e, `notfn = 7`)
	if _, err := e.CallGlobal("notfn"); err == nil {
		t.Error("CallGlobal(notfn) error = nil, want error")
	}
}

func TestCallGlobalErrorSetsPending(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `function boom() error("bad") end`)

	_, err := e.CallGlobal("boom")
	if err == nil {
		t.Fatal("CallGlobal(boom) error = nil, want error")
	}

	pend := e.CheckPending()
	if pend == nil {
		t.Fatal("CheckPending() = nil, want pending exception")
	}
	var thrown *Thrown
	if !errors.As(pend, &thrown) {
		t.Fatalf("CheckPending() = %T, want *Thrown", pend)
	}
	if again := e.CheckPending(); again != nil {
		t.Errorf("second CheckPending() = %v, want nil", again)
	}
}

func TestClosedEngine(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !e.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}

	if err := e.DoString(`x = 1`); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("DoString() error = %v, want ErrEngineClosed", err)
	}
	if _, err := e.CallGlobal("f"); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("CallGlobal() error = %v, want ErrEngineClosed", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestExecTimeoutAbortsRunawayScript(t *testing.T) {
	e := newTestEngine(t, WithExecTimeout(50*time.Millisecond))

	if err := e.DoString(`while true do end`); err == nil {
		t.Fatal("DoString() error = nil, want timeout abort")
	}
}

func TestWithOptions(t *testing.T) {
	e := newTestEngine(t, WithOptions(Options{
		EnableClosures: false,
		Libraries:      []string{"base"},
	}))

	if e.Options().EnableClosures {
		t.Error("EnableClosures = true, want false")
	}
	if e.L.GetGlobal("table") != glua.LNil {
		t.Error("table library opened despite restricted options")
	}
}
