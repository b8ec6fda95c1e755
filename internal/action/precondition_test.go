package action

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sothcheat/provision/internal/ports"
)

func TestBinaryPresent(t *testing.T) {
	t.Parallel()

	pre, err := newBinaryPresent(Params{"binary": "git"})
	require.NoError(t, err)

	runner := newFakeRunner()
	runner.lookPaths["git"] = "/usr/bin/git"

	shouldRun, _, err := pre.Evaluate(context.Background(), testRun(nil, runner))
	require.NoError(t, err)
	assert.True(t, shouldRun)

	delete(runner.lookPaths, "git")
	shouldRun, reason, err := pre.Evaluate(context.Background(), testRun(nil, runner))
	require.NoError(t, err)
	assert.False(t, shouldRun)
	assert.Contains(t, reason, "not found")
}

func TestBinaryAbsent(t *testing.T) {
	t.Parallel()

	pre, err := newBinaryAbsent(Params{"binary": "lazygit"})
	require.NoError(t, err)

	runner := newFakeRunner()

	shouldRun, _, err := pre.Evaluate(context.Background(), testRun(nil, runner))
	require.NoError(t, err)
	assert.True(t, shouldRun, "missing binary means the install step runs")

	runner.lookPaths["lazygit"] = "/usr/bin/lazygit"
	shouldRun, reason, err := pre.Evaluate(context.Background(), testRun(nil, runner))
	require.NoError(t, err)
	assert.False(t, shouldRun)
	assert.Contains(t, reason, "already installed")
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	pre, err := newFileExists(Params{"path": present})
	require.NoError(t, err)

	shouldRun, _, err := pre.Evaluate(context.Background(), realFSRun(nil))
	require.NoError(t, err)
	assert.True(t, shouldRun)

	missing, err := newFileExists(Params{"path": filepath.Join(dir, "missing")})
	require.NoError(t, err)

	shouldRun, reason, err := missing.Evaluate(context.Background(), realFSRun(nil))
	require.NoError(t, err)
	assert.False(t, shouldRun)
	assert.Contains(t, reason, "does not exist")
}

func TestFileAbsent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	pre, err := newFileAbsent(Params{"path": present})
	require.NoError(t, err)

	shouldRun, reason, err := pre.Evaluate(context.Background(), realFSRun(nil))
	require.NoError(t, err)
	assert.False(t, shouldRun)
	assert.Contains(t, reason, "already present")
}

func TestCommandSucceeds(t *testing.T) {
	t.Parallel()

	t.Run("zero exit runs the step", func(t *testing.T) {
		t.Parallel()

		pre, err := newCommandSucceeds(Params{"command": "systemctl", "args": []interface{}{"is-enabled", "sshd"}})
		require.NoError(t, err)

		runner := newFakeRunner()
		shouldRun, _, err := pre.Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun)
	})

	t.Run("non-zero exit skips", func(t *testing.T) {
		t.Parallel()

		pre, err := newCommandSucceeds(Params{"command": "systemctl"})
		require.NoError(t, err)

		runner := newFakeRunner()
		runner.results["systemctl"] = ports.CommandResult{ExitCode: 1}

		shouldRun, reason, err := pre.Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.False(t, shouldRun)
		assert.Contains(t, reason, "exited 1")
	})

	t.Run("negate accepts a YAML boolean", func(t *testing.T) {
		t.Parallel()

		// A catalog's `negate: true` arrives as a bool, not a string.
		pre, err := newCommandSucceeds(Params{"command": "flatpak", "negate": true})
		require.NoError(t, err)

		runner := newFakeRunner()
		shouldRun, _, err := pre.Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.False(t, shouldRun)
	})

	t.Run("negate inverts the verdict", func(t *testing.T) {
		t.Parallel()

		pre, err := newCommandSucceeds(Params{"command": "mountpoint", "negate": "true"})
		require.NoError(t, err)

		runner := newFakeRunner()
		shouldRun, reason, err := pre.Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.False(t, shouldRun)
		assert.Contains(t, reason, "succeeded")

		runner.results["mountpoint"] = ports.CommandResult{ExitCode: 32}
		shouldRun, _, err = pre.Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun)
	})

	t.Run("probe failure surfaces the error", func(t *testing.T) {
		t.Parallel()

		pre, err := newCommandSucceeds(Params{"command": "systemctl"})
		require.NoError(t, err)

		runner := newFakeRunner()
		runner.errs["systemctl"] = os.ErrPermission

		_, _, evalErr := pre.Evaluate(context.Background(), testRun(nil, runner))
		assert.Error(t, evalErr, "the engine records a skipped step for this")
	})
}

func TestVersionAtLeast(t *testing.T) {
	t.Parallel()

	newPre := func(t *testing.T, minimum string) Precondition {
		t.Helper()
		pre, err := newVersionAtLeast(Params{"binary": "node", "version": minimum})
		require.NoError(t, err)
		return pre
	}

	t.Run("older version runs the upgrade", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.lookPaths["node"] = "/usr/bin/node"
		runner.results["node"] = ports.CommandResult{Stdout: "v20.11.1\n"}

		shouldRun, _, err := newPre(t, "22.0.0").Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun)
	})

	t.Run("satisfied version skips", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.lookPaths["node"] = "/usr/bin/node"
		runner.results["node"] = ports.CommandResult{Stdout: "v22.3.0\n"}

		shouldRun, reason, err := newPre(t, "22.0.0").Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.False(t, shouldRun)
		assert.Contains(t, reason, "already satisfies")
	})

	t.Run("missing binary runs the step", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()

		shouldRun, _, err := newPre(t, "22.0.0").Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun)
	})

	t.Run("version on stderr", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.lookPaths["node"] = "/usr/bin/node"
		runner.results["node"] = ports.CommandResult{Stderr: "node version 21.0.0"}

		shouldRun, _, err := newPre(t, "22.0.0").Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun)
	})

	t.Run("two-segment versions compare", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.lookPaths["node"] = "/usr/bin/node"
		runner.results["node"] = ports.CommandResult{Stdout: "1.9"}

		shouldRun, _, err := newPre(t, "1.10").Evaluate(context.Background(), testRun(nil, runner))
		require.NoError(t, err)
		assert.True(t, shouldRun, "1.9 is older than 1.10 numerically")
	})

	t.Run("unparseable output errors", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.lookPaths["node"] = "/usr/bin/node"
		runner.results["node"] = ports.CommandResult{Stdout: "no digits here"}

		_, _, err := newPre(t, "22.0.0").Evaluate(context.Background(), testRun(nil, runner))
		assert.ErrorContains(t, err, "no version in output")
	})

	t.Run("rejects a bad minimum at construction", func(t *testing.T) {
		t.Parallel()

		_, err := newVersionAtLeast(Params{"binary": "node", "version": "latest"})
		assert.ErrorContains(t, err, "not a valid version")
	})
}

func TestNormalizeSemver(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "v1.2.0", normalizeSemver("1.2"))
	assert.Equal(t, "v1.2.3", normalizeSemver("v1.2.3"))
	assert.Equal(t, "v10.0.0", normalizeSemver("10.0"))
}
