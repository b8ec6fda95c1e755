// Package backup implements the backup-before-mutation discipline: any
// step that rewrites an existing file first copies the original to a
// timestamped sibling path. A failed backup always fails the step before
// the target is touched.
package backup

import (
	"fmt"
	"time"

	"github.com/Sothcheat/provision/internal/ports"
)

// Error reports a failed backup. It is always escalated to a fatal step
// failure regardless of the step's declared severity.
type Error struct {
	Target     string
	BackupPath string
	Underlying error
}

// Error returns the formatted message.
func (e *Error) Error() string {
	return fmt.Sprintf("backup of %s to %s failed: %v", e.Target, e.BackupPath, e.Underlying)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Service creates timestamped sibling copies of files about to be
// mutated.
type Service struct {
	fs  ports.FileSystem
	now func() time.Time
}

// NewService creates a backup service.
func NewService(fs ports.FileSystem) *Service {
	return &Service{fs: fs, now: time.Now}
}

// WithClock overrides the timestamp source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	return &Service{fs: s.fs, now: now}
}

// PathFor returns the sibling backup path for a target at the given time.
func PathFor(target string, at time.Time) string {
	return fmt.Sprintf("%s.bak.%s", target, at.Format("20060102-150405"))
}

// Create copies the target to a timestamped sibling path and returns the
// backup path. A missing target needs no backup and returns "". Any
// failure is wrapped in *Error so the caller can escalate it to fatal.
func (s *Service) Create(target string) (string, error) {
	if !s.fs.Exists(target) {
		return "", nil
	}

	backupPath := PathFor(target, s.now())
	if err := s.fs.CopyFile(target, backupPath); err != nil {
		return "", &Error{Target: target, BackupPath: backupPath, Underlying: err}
	}

	return backupPath, nil
}
