package journal

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id has no persisted journal.
var ErrRunNotFound = errors.New("run not found")

// NotFoundError wraps ErrRunNotFound with the offending run id.
type NotFoundError struct {
	RunID string
}

// Error returns the formatted message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run %q not found", e.RunID)
}

// Unwrap supports errors.Is(err, ErrRunNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrRunNotFound
}

// Summary is the per-run listing view used by history.
type Summary struct {
	RunID     RunID
	StartedAt time.Time
	EndedAt   time.Time
	Status    Status
	Counts    Counts
}

// Store persists journals durably, keyed by run id. Implementations must
// make every Append durable before returning: a crash between appends
// has to leave a loadable partial journal.
type Store interface {
	// Begin persists the journal header for a fresh run.
	Begin(j *Journal) error

	// Append persists one record for an open run.
	Append(runID RunID, rec Record) error

	// Finalize persists the terminal status marker.
	Finalize(runID RunID, status Status, at time.Time) error

	// Load reads a persisted journal. Returns an error satisfying
	// errors.Is(err, ErrRunNotFound) for unknown ids.
	Load(runID RunID) (*Journal, error)

	// List returns summaries of all persisted runs, newest first.
	List() ([]Summary, error)
}
