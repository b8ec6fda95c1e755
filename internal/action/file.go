package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sothcheat/provision/internal/validation"
)

// fileAction writes a managed configuration file. An existing target is
// copied to a timestamped sibling first; a failed backup fails the step
// before any byte of the target changes.
type fileAction struct {
	path    string
	content string
	mode    os.FileMode
}

func newFileAction(params Params) (Action, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	content, err := params.StringOr("content", "")
	if err != nil {
		return nil, err
	}
	modeStr, err := params.StringOr("mode", "0644")
	if err != nil {
		return nil, err
	}
	mode, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return nil, fmt.Errorf("parameter \"mode\" must be an octal file mode: %w", err)
	}

	return &fileAction{path: path, content: content, mode: os.FileMode(mode)}, nil
}

// Describe returns the write summary.
func (a *fileAction) Describe() string {
	return fmt.Sprintf("write %s (%d bytes, mode %04o)", a.path, len(a.content), a.mode)
}

// Apply backs up, writes, and fixes ownership for user-scoped files.
func (a *fileAction) Apply(ctx context.Context, run RunContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := run.ExpandPath(a.path)
	if err := validation.ValidateTargetPath(path); err != nil {
		return err
	}

	if _, err := run.Backups.Create(path); err != nil {
		return err
	}

	if dir := filepath.Dir(path); !run.FS.Exists(dir) {
		if err := run.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := run.FS.WriteFile(path, []byte(a.content), a.mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := run.FS.Chmod(path, a.mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	return chownForRunAs(run, path)
}

// chownForRunAs hands a user-scoped file to the invoking user.
func chownForRunAs(run RunContext, path string) error {
	cred := run.Credential()
	if cred == nil {
		return nil
	}
	if err := run.FS.Chown(path, int(cred.UID), int(cred.GID)); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}
