package action

import (
	"context"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sothcheat/provision/internal/validation"
)

// tomlMergeAction merges keys into a TOML document, creating the file
// when absent. Nested tables merge recursively; scalar values from the
// catalog win over existing ones. Used for terminal emulator themes and
// similar TOML-configured applications.
type tomlMergeAction struct {
	path   string
	values map[string]interface{}
}

func newTomlMergeAction(params Params) (Action, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	values, err := params.Map("values")
	if err != nil {
		return nil, err
	}

	return &tomlMergeAction{path: path, values: values}, nil
}

// Describe returns the merge summary.
func (a *tomlMergeAction) Describe() string {
	return fmt.Sprintf("merge %d keys into %s", len(a.values), a.path)
}

// Apply backs up the document, merges, and writes it back.
func (a *tomlMergeAction) Apply(ctx context.Context, run RunContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := run.ExpandPath(a.path)
	if err := validation.ValidateTargetPath(path); err != nil {
		return err
	}

	existing := map[string]interface{}{}
	if run.FS.Exists(path) {
		data, err := run.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if _, err := run.Backups.Create(path); err != nil {
		return err
	}

	merged := mergeMaps(existing, a.values)
	data, err := toml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := run.FS.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return chownForRunAs(run, path)
}

// mergeMaps merges override into base recursively. Nested maps merge,
// anything else is replaced.
func mergeMaps(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range override {
		overrideMap, overrideIsMap := value.(map[string]interface{})
		baseMap, baseIsMap := merged[key].(map[string]interface{})
		if overrideIsMap && baseIsMap {
			merged[key] = mergeMaps(baseMap, overrideMap)
			continue
		}
		merged[key] = value
	}
	return merged
}
