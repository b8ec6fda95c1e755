package action

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/Sothcheat/provision/internal/validation"
)

// iniSetAction sets keys in one section of an INI file, creating the
// file or section when absent. Used for package-manager tuning like
// max_parallel_downloads in dnf.conf.
type iniSetAction struct {
	path    string
	section string
	keys    map[string]string
}

func newIniSetAction(params Params) (Action, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	section, err := params.StringOr("section", ini.DefaultSection)
	if err != nil {
		return nil, err
	}
	keys, err := params.StringMap("keys")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errMissingParam("keys")
	}

	return &iniSetAction{path: path, section: section, keys: keys}, nil
}

// Describe returns the set summary.
func (a *iniSetAction) Describe() string {
	return fmt.Sprintf("set %d keys in %s [%s]", len(a.keys), a.path, a.section)
}

// Apply backs up the file, sets the keys, and writes it back.
func (a *iniSetAction) Apply(ctx context.Context, run RunContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := run.ExpandPath(a.path)
	if err := validation.ValidateTargetPath(path); err != nil {
		return err
	}

	var cfg *ini.File
	if run.FS.Exists(path) {
		data, err := run.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		cfg, err = ini.Load(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		cfg = ini.Empty()
	}

	if _, err := run.Backups.Create(path); err != nil {
		return err
	}

	section := cfg.Section(a.section)
	for key, value := range a.keys {
		section.Key(key).SetValue(value)
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := run.FS.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return chownForRunAs(run, path)
}
