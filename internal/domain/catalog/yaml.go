package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// stepYAML is the YAML representation of one step.
type stepYAML struct {
	ID           string                 `yaml:"id"`
	Description  string                 `yaml:"description,omitempty"`
	Severity     string                 `yaml:"severity,omitempty"`
	RunAs        string                 `yaml:"run_as,omitempty"`
	Timeout      string                 `yaml:"timeout,omitempty"`
	Env          map[string]string      `yaml:"env,omitempty"`
	Action       map[string]interface{} `yaml:"action"`
	Precondition map[string]interface{} `yaml:"precondition,omitempty"`
}

// defaultsYAML is the catalog-level defaults block, applied to steps
// that do not declare their own value.
type defaultsYAML struct {
	Severity string `yaml:"severity,omitempty"`
	RunAs    string `yaml:"run_as,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

// catalogYAML is the root document.
type catalogYAML struct {
	Defaults defaultsYAML `yaml:"defaults,omitempty"`
	Steps    []stepYAML   `yaml:"steps"`
}

// Parse parses and validates a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var raw catalogYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if len(raw.Steps) == 0 {
		return nil, NewCatalogError(ErrCodeCatalogInvalid, "catalog must define at least one step").
			WithSuggestion("Add a steps: list to the catalog")
	}

	defaults, err := parseDefaults(raw.Defaults)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(raw.Steps))
	for i, rawStep := range raw.Steps {
		step, err := convertStep(rawStep, defaults, i)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return Load(steps)
}

// stepDefaults carries the parsed defaults block.
type stepDefaults struct {
	severity Severity
	runAs    RunAs
	timeout  time.Duration
}

func parseDefaults(raw defaultsYAML) (stepDefaults, error) {
	d := stepDefaults{
		severity: SeverityRecoverable,
		runAs:    RunAsRoot,
	}

	if raw.Severity != "" {
		sev, err := ParseSeverity(raw.Severity)
		if err != nil {
			return d, NewStepInvalidError("defaults", err)
		}
		d.severity = sev
	}
	if raw.RunAs != "" {
		runAs, err := ParseRunAs(raw.RunAs)
		if err != nil {
			return d, NewStepInvalidError("defaults", err)
		}
		d.runAs = runAs
	}
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return d, NewStepInvalidError("defaults", fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err))
		}
		d.timeout = timeout
	}

	return d, nil
}

func convertStep(raw stepYAML, defaults stepDefaults, index int) (Step, error) {
	position := fmt.Sprintf("steps[%d]", index)

	if raw.ID == "" {
		return Step{}, NewMissingFieldError(position, "id")
	}

	id, err := NewStepID(raw.ID)
	if err != nil {
		return Step{}, NewStepInvalidError(position, err)
	}

	step := Step{
		ID:          id,
		Description: raw.Description,
		Severity:    defaults.severity,
		RunAs:       defaults.runAs,
		Timeout:     defaults.timeout,
		Env:         raw.Env,
	}

	if raw.Severity != "" {
		sev, err := ParseSeverity(raw.Severity)
		if err != nil {
			return Step{}, NewStepInvalidError(id.String(), err)
		}
		step.Severity = sev
	}

	if raw.RunAs != "" {
		runAs, err := ParseRunAs(raw.RunAs)
		if err != nil {
			return Step{}, NewStepInvalidError(id.String(), err)
		}
		step.RunAs = runAs
	}

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Step{}, NewStepInvalidError(id.String(), fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err))
		}
		step.Timeout = timeout
	}

	if len(raw.Action) == 0 {
		return Step{}, NewMissingFieldError(id.String(), "action")
	}
	actionType, actionParams, err := splitTypedBlock(raw.Action)
	if err != nil {
		return Step{}, NewMissingFieldError(id.String(), "action.type")
	}
	step.Action = ActionSpec{Type: actionType, Params: actionParams}

	if len(raw.Precondition) > 0 {
		preType, preParams, err := splitTypedBlock(raw.Precondition)
		if err != nil {
			return Step{}, NewMissingFieldError(id.String(), "precondition.type")
		}
		step.Precondition = &PreconditionSpec{Type: preType, Params: preParams}
	}

	return step, nil
}

// splitTypedBlock pulls the "type" key out of an action/precondition
// block; the remaining keys are the type-specific parameters.
func splitTypedBlock(block map[string]interface{}) (string, map[string]interface{}, error) {
	rawType, ok := block["type"]
	if !ok {
		return "", nil, fmt.Errorf("missing type")
	}
	typ, ok := rawType.(string)
	if !ok || typ == "" {
		return "", nil, fmt.Errorf("missing type")
	}

	params := make(map[string]interface{}, len(block)-1)
	for key, value := range block {
		if key == "type" {
			continue
		}
		params[key] = value
	}

	return typ, params, nil
}

// Loader loads catalogs from the filesystem.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads, parses, and validates a catalog file.
func (l *Loader) LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewCatalogNotFoundError(path)
		}
		return nil, err
	}

	cat, err := Parse(data)
	if err != nil {
		// Translate raw YAML errors into a user-friendly message
		// naming the file; typed errors pass through with the path
		// attached.
		if catErr, ok := err.(*CatalogError); ok {
			if catErr.Context == "" {
				return nil, catErr.WithContext(path)
			}
			return nil, catErr
		}
		if strings.Contains(err.Error(), "yaml:") || strings.Contains(err.Error(), "unmarshal") {
			return nil, NewCatalogParseError(path, err)
		}
		return nil, err
	}

	return cat, nil
}
