package host

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHookInstalled is returned when a load context already has an import hook.
var ErrHookInstalled = errors.New("import hook already installed")

// UnitNotFoundError is returned when no finder can produce a unit.
type UnitNotFoundError struct {
	Name string
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("unit %q not found", e.Name)
}

// CircularImportError is returned when a unit imports itself, directly or
// transitively, during its first load.
type CircularImportError struct {
	Chain []string
}

func (e *CircularImportError) Error() string {
	return fmt.Sprintf("circular import: %s", strings.Join(e.Chain, " -> "))
}

// BodyPanicError wraps a panic raised by a unit or class body.
type BodyPanicError struct {
	Unit  string
	Value any
}

func (e *BodyPanicError) Error() string {
	return fmt.Sprintf("body of %s panicked: %v", e.Unit, e.Value)
}
