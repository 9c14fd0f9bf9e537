package bind

import (
	"errors"
	"fmt"
)

// Binding errors.
var (
	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrClassNotBound is returned when instantiating a class that has not
	// completed the binding phase.
	ErrClassNotBound = errors.New("class is not bound")

	// ErrAlreadyDeclared is returned when a class name is declared twice.
	ErrAlreadyDeclared = errors.New("class already declared")

	// ErrUnknownClass is returned when a parent or interface reference
	// cannot be resolved.
	ErrUnknownClass = errors.New("unknown class")

	// ErrDependencyCycle is returned when class dependencies form a cycle.
	ErrDependencyCycle = errors.New("class dependency cycle")

	// ErrRegistryFrozen is returned when declaring after the binding phase.
	ErrRegistryFrozen = errors.New("registry is frozen after binding")

	// ErrAccessDenied is returned when property visibility rejects an access.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnknownProperty is returned for a property the class never declared.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrInvalidExceptionClass is returned when a throwable class does not
	// extend the builtin Exception class.
	ErrInvalidExceptionClass = errors.New("exception class must extend Exception")

	// ErrClosuresDisabled is returned when closure support is switched off.
	ErrClosuresDisabled = errors.New("closure support is disabled")

	// ErrReturnAlreadySet is returned on a second write to a frame's
	// return slot.
	ErrReturnAlreadySet = errors.New("return value already set")

	// ErrNoFactory is returned when a non-interface class has no factory.
	ErrNoFactory = errors.New("class has no factory")
)

// RegistrationError reports a failure of the binding phase. A single
// failing class fails the whole module load.
type RegistrationError struct {
	Class string
	Err   error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registering class %q: %v", e.Class, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}
