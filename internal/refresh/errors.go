package refresh

import (
	"errors"
	"fmt"
)

// ErrRefreshInProgress is returned when Refresh is called while another
// refresh on the same orchestrator is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// BatchMismatchError reports a batch member that is not the unit currently
// registered under its name.
type BatchMismatchError struct {
	Name string
}

func (e *BatchMismatchError) Error() string {
	return fmt.Sprintf("batch unit %q is not the registered unit of that name", e.Name)
}

// ReloadError wraps a failure while re-executing a unit during refresh.
type ReloadError struct {
	Unit string
	Err  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload %s: %v", e.Unit, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }
