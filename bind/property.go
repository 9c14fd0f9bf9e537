package bind

// Visibility controls where a declared property may be accessed from.
type Visibility int

// Property visibilities.
const (
	// Public - accessible from anywhere.
	Public Visibility = iota

	// Protected - accessible from the declaring class and its subclasses.
	Protected

	// Private - accessible only from methods of the declaring class.
	Private
)

// String returns a string representation of the visibility.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// Property is one declared property of a class: a name, a Go default
// value and a visibility flag. The default is converted to a fresh
// engine value for every new instance, so instances never alias each
// other's defaults.
type Property struct {
	Name       string
	Default    interface{}
	Visibility Visibility
}
