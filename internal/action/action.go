// Package action defines the opaque unit-of-work contract the engine
// executes, plus the built-in action and precondition types catalogs can
// reference.
package action

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/identity"
	"github.com/Sothcheat/provision/internal/ports"
)

// RunContext carries the capabilities an action may use: the filesystem,
// the command runner, the backup service, and the identity the step
// declared it runs as.
type RunContext struct {
	// User is the resolved invoking (non-privileged) user.
	User identity.User
	// RunAs is the step's declared effective identity.
	RunAs catalog.RunAs
	// Env is the step's extra environment, appended to the inherited one.
	Env map[string]string

	Runner  ports.CommandRunner
	FS      ports.FileSystem
	Logger  ports.Logger
	Backups *backup.Service
}

// Credential returns the credential external processes should run under,
// nil when the step runs as the elevated principal.
func (c RunContext) Credential() *ports.Credential {
	if c.RunAs == catalog.RunAsUser {
		return c.User.Credential()
	}
	return nil
}

// EnvSlice renders the step environment in KEY=VALUE form. When the step
// runs as the invoking user, HOME / USER / LOGNAME are rewritten so
// user-scoped tools resolve the right home directory.
func (c RunContext) EnvSlice() []string {
	env := make([]string, 0, len(c.Env)+3)

	if c.RunAs == catalog.RunAsUser {
		env = append(env,
			"HOME="+c.User.Home,
			"USER="+c.User.Name,
			"LOGNAME="+c.User.Name,
		)
	}

	keys := make([]string, 0, len(c.Env))
	for key := range c.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+c.Env[key])
	}

	return env
}

// ExpandPath expands ~ against the home of the identity the step runs as.
func (c RunContext) ExpandPath(path string) string {
	if c.RunAs == catalog.RunAsUser {
		return ports.ExpandPathFor(path, c.User.Home)
	}
	return ports.ExpandPath(path)
}

// Action is one opaque unit of provisioning work. Implementations must
// be naturally idempotent when the owning step declares no precondition.
type Action interface {
	// Describe returns a one-line summary of what Apply will do, used
	// by dry runs and the plan command.
	Describe() string

	// Apply performs the work. The context carries the engine's
	// per-step timeout; implementations must honor cancellation.
	Apply(ctx context.Context, run RunContext) error
}

// Precondition decides whether a step should run at all. Evaluation must
// be free of side effects: plan and dry-run both execute it.
type Precondition interface {
	// Describe returns a one-line summary of the check.
	Describe() string

	// Evaluate returns whether the step should run and, when it should
	// not, the reason recorded as the skip detail.
	Evaluate(ctx context.Context, run RunContext) (shouldRun bool, reason string, err error)
}

// errMissingParam builds the shared message for a missing action param.
func errMissingParam(name string) error {
	return fmt.Errorf("missing required parameter %q", name)
}
