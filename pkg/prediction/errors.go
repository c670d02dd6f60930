package prediction

import "fmt"

// ValidationError reports a malformed or out-of-range field in a prediction
// entry. It carries the offending field and the expected versus actual value
// so callers can surface it without inspecting internals.
type ValidationError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// UnsupportedVariantError reports a prediction kind the system does not model.
type UnsupportedVariantError struct {
	Variant string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("unsupported prediction variant %q", e.Variant)
}
