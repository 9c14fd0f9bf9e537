package bind

// ClassState represents the lifecycle state of a class descriptor.
type ClassState int

// Descriptor states. Failed is terminal; a Failed class can never be
// instantiated.
const (
	// StateDeclared - descriptor collected, no engine calls made.
	StateDeclared ClassState = iota

	// StateResolving - dependencies are being resolved during binding.
	StateResolving

	// StateBound - class entry exists in the engine, instances allowed.
	StateBound

	// StateFailed - binding failed; terminal.
	StateFailed
)

// String returns a string representation of the state.
func (s ClassState) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateResolving:
		return "resolving"
	case StateBound:
		return "bound"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
