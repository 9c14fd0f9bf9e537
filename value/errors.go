package value

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrNoState is returned when a table constructor is called with a nil state.
	ErrNoState = errors.New("value: nil engine state")

	// ErrNotJSON is returned when a value has no JSON representation.
	ErrNotJSON = errors.New("value: not representable as JSON")
)

// TypeMismatchError is returned when an engine value's tag does not match
// the type a conversion expects.
type TypeMismatchError struct {
	Expected Kind
	Found    Kind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, found %s", e.Expected, e.Found)
}

// OutOfRangeError is returned when a numeric conversion would lose
// information.
type OutOfRangeError struct {
	Value  string // String form of the offending value
	Target string // Go type the value would not fit
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("value %s out of range for %s", e.Value, e.Target)
}

// UTF8Error is returned when a string payload is not valid UTF-8 text.
type UTF8Error struct {
	At int // Byte offset of the first invalid sequence
}

// Error implements the error interface.
func (e *UTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 sequence at byte %d", e.At)
}

// mismatch builds a TypeMismatchError.
func mismatch(expected, found Kind) error {
	return &TypeMismatchError{Expected: expected, Found: found}
}
