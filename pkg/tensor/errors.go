package tensor

import "fmt"

// RangeError reports an axis index outside its valid bound. It is returned,
// never silently clamped, from every entry point that takes a channel, t, z
// or reference index.
type RangeError struct {
	// Name identifies the offending index ("channel", "t", "z", "zRef", "tRef").
	Name string

	// Index is the value that was passed in.
	Index int

	// Max is the largest valid value (extent - 1).
	Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range: valid 0-%d", e.Name, e.Index, e.Max)
}

// CheckIndex validates 0 <= index < extent and returns a *RangeError naming
// the index otherwise.
func CheckIndex(name string, index, extent int) error {
	if index < 0 || index >= extent {
		return &RangeError{Name: name, Index: index, Max: extent - 1}
	}
	return nil
}
