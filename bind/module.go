package bind

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Module is the entry point a native extension presents to the engine: a
// name, a version, and the set of functions and classes it exports.
// Attaching a module to an engine performs the whole registration
// sequence and either succeeds completely or fails the load.
type Module struct {
	Name    string `validate:"required"`
	Version string `validate:"required,semver"`

	funcs   []*Func
	classes []*Descriptor
}

// moduleValidate validates module metadata.
var moduleValidate = validator.New()

// NewModule creates a module descriptor with the given name and semver
// version.
func NewModule(name, version string) *Module {
	return &Module{Name: name, Version: version}
}

// Function exports a module-level function with its argument
// specification.
func (m *Module) Function(name string, h FuncHandler, args ...Arg) *Module {
	m.funcs = append(m.funcs, &Func{Name: name, Args: args, Handler: h})
	return m
}

// Class exports a class descriptor.
func (m *Module) Class(d *Descriptor) *Module {
	m.classes = append(m.classes, d)
	return m
}

// Functions returns the exported function names in declaration order.
func (m *Module) Functions() []string {
	out := make([]string, len(m.funcs))
	for i, f := range m.funcs {
		out[i] = f.Name
	}
	return out
}

// Attach registers the module with an engine: metadata is validated,
// classes go through the two-phase declare/bind sequence, and functions
// are exported as globals. A failure anywhere fails the whole load.
func (m *Module) Attach(e *Engine) error {
	if e.IsClosed() {
		return ErrEngineClosed
	}

	if err := moduleValidate.Struct(m); err != nil {
		return fmt.Errorf("module %q: invalid metadata: %w", m.Name, err)
	}

	seen := make(map[string]bool)
	for _, f := range m.funcs {
		if f.Name == "" || f.Handler == nil {
			return fmt.Errorf("module %q: function %q has no handler", m.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("module %q: duplicate function %q", m.Name, f.Name)
		}
		seen[f.Name] = true
		if err := validateArgs("function "+f.Name, f.Args); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}

	// Declaration phase: collect descriptors, no engine calls.
	for _, d := range m.classes {
		if err := e.reg.Declare(d); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}

	// Binding phase: resolve in dependency order and create engine-side
	// class entries.
	if err := e.reg.bindAll(e); err != nil {
		return fmt.Errorf("module %q: %w", m.Name, err)
	}

	for _, f := range m.funcs {
		e.L.SetGlobal(f.Name, e.L.NewFunction(e.funcShim(f)))
	}

	return nil
}
