package engine

import (
	"errors"
	"fmt"
)

// ErrAborted marks a run halted before the end of its catalog, either by
// a fatal step failure or an operator interrupt.
var ErrAborted = errors.New("run aborted")

// ErrPrivilege is returned when a real run starts without elevation.
// Dry runs and plans work unprivileged.
var ErrPrivilege = errors.New("a provisioning run requires elevated privilege (re-run with sudo, or use --dry-run)")

// AbortedError reports where and why a run aborted.
type AbortedError struct {
	RunID  string
	StepID string
	Detail string
}

// Error returns the formatted message.
func (e *AbortedError) Error() string {
	if e.StepID == "" {
		return fmt.Sprintf("run %s aborted: %s", e.RunID, e.Detail)
	}
	return fmt.Sprintf("run %s aborted at step %q: %s", e.RunID, e.StepID, e.Detail)
}

// Unwrap supports errors.Is(err, ErrAborted).
func (e *AbortedError) Unwrap() error {
	return ErrAborted
}
