//go:build unix

package command

import (
	"os/exec"
	"syscall"

	"github.com/Sothcheat/provision/internal/ports"
)

// applyCredential switches the child's effective identity. Requires the
// parent to run with elevated privilege; the engine checks that before a
// real run starts.
func applyCredential(cmd *exec.Cmd, cred *ports.Credential) {
	if cred == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{
		Uid: cred.UID,
		Gid: cred.GID,
	}
}

// setProcessGroup places the child in its own process group and makes
// cancellation signal the group, not just the direct child. A package
// manager forks workers; SIGTERM to the leader alone would orphan them.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// The negative pid addresses the group. WaitDelay kills the
		// leader outright if the group does not exit in time.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}
