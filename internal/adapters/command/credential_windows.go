//go:build windows

package command

import (
	"os/exec"

	"github.com/Sothcheat/provision/internal/ports"
)

// applyCredential is a no-op on Windows; per-step identity switching is
// a Unix feature.
func applyCredential(_ *exec.Cmd, _ *ports.Credential) {}

// setProcessGroup is a no-op on Windows; the default context kill
// applies.
func setProcessGroup(_ *exec.Cmd) {}
