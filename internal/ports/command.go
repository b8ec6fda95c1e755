// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// Credential identifies the OS user a command should execute as.
// A nil *Credential means "run as the current effective user".
type Credential struct {
	UID uint32
	GID uint32
}

// ExecSpec describes one external process invocation.
type ExecSpec struct {
	Command string
	Args    []string
	// Env entries in KEY=VALUE form, appended to the inherited environment.
	Env []string
	Dir string
	// RunAs switches the effective identity of the child process.
	// Requires the caller to hold sufficient privilege.
	RunAs *Credential
}

// CommandResult represents the result of executing an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandRunner executes external commands.
type CommandRunner interface {
	// Run executes the spec and returns its result. A non-zero exit code
	// is reported through the result, not through the error return.
	Run(ctx context.Context, spec ExecSpec) (CommandResult, error)

	// LookPath reports the absolute path of a binary, or an error when
	// the binary is not on PATH.
	LookPath(name string) (string, error)
}
