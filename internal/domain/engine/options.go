package engine

import (
	"time"

	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/identity"
	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/ports"
)

// Options configure one run.
type Options struct {
	// DryRun evaluates preconditions and records intended actions
	// without invoking side effects. Dry-run journals are not persisted.
	DryRun bool

	// Resume names a prior run whose journal decides which steps to
	// skip: steps already Succeeded or Skipped are not re-executed.
	Resume journal.RunID

	// StepTimeout bounds each step's action. A step's own declared
	// timeout takes precedence. Zero means no engine-enforced bound.
	StepTimeout time.Duration
}

// RunContext carries the resolved identities and capabilities a run
// executes with. The caller resolves these once, before the run starts.
type RunContext struct {
	// User is the resolved invoking (non-privileged) user.
	User identity.User

	// Elevated reports whether the process holds root privilege. A
	// real run refuses to start without it.
	Elevated bool

	Runner  ports.CommandRunner
	FS      ports.FileSystem
	Logger  ports.Logger
	Backups *backup.Service

	// Events receives step transition events, used by the interactive
	// progress view. Nil is fine.
	Events EventSink
}

func (c RunContext) emit(event Event) {
	if c.Events != nil {
		c.Events(event)
	}
}
