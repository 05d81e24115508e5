package unit

import (
	"errors"
	"fmt"
)

// ErrNotCallable is returned when a call targets something without a body.
var ErrNotCallable = errors.New("not callable")

// AttributeError reports a missing name on a unit, type or instance.
type AttributeError struct {
	Owner string
	Name  string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Owner, e.Name)
}
