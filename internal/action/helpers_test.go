package action

import (
	"context"
	"fmt"

	"github.com/Sothcheat/provision/internal/adapters/filesystem"
	"github.com/Sothcheat/provision/internal/adapters/logging"
	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/identity"
	"github.com/Sothcheat/provision/internal/ports"
)

// fakeRunner scripts command results by command name and records every
// invocation.
type fakeRunner struct {
	lookPaths map[string]string
	results   map[string]ports.CommandResult
	errs      map[string]error
	calls     []ports.ExecSpec
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		lookPaths: make(map[string]string),
		results:   make(map[string]ports.CommandResult),
		errs:      make(map[string]error),
	}
}

func (r *fakeRunner) Run(_ context.Context, spec ports.ExecSpec) (ports.CommandResult, error) {
	r.calls = append(r.calls, spec)
	if err, ok := r.errs[spec.Command]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := r.results[spec.Command]; ok {
		return result, nil
	}
	return ports.CommandResult{ExitCode: 0}, nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if path, ok := r.lookPaths[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// testRun builds a RunContext against the real filesystem, suitable for
// t.TempDir-based action tests.
func testRun(fs ports.FileSystem, runner ports.CommandRunner) RunContext {
	return RunContext{
		User:    identity.User{Name: "alice", UID: 1000, GID: 1000, Home: "/home/alice"},
		RunAs:   catalog.RunAsRoot,
		Runner:  runner,
		FS:      fs,
		Logger:  logging.NewNopLogger(),
		Backups: backup.NewService(fs),
	}
}

func realFSRun(runner ports.CommandRunner) RunContext {
	return testRun(filesystem.NewRealFileSystem(), runner)
}
