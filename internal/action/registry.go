package action

import (
	"sort"

	"github.com/Sothcheat/provision/internal/domain/catalog"
)

// ActionFactory builds an action from its raw catalog parameters.
type ActionFactory func(params Params) (Action, error)

// PreconditionFactory builds a precondition from its raw parameters.
type PreconditionFactory func(params Params) (Precondition, error)

// Registry maps action and precondition type names to factories. Catalog
// validation and step execution both resolve through it.
type Registry struct {
	actions       map[string]ActionFactory
	preconditions map[string]PreconditionFactory
}

// NewRegistry creates a registry with all built-in types registered.
func NewRegistry() *Registry {
	r := &Registry{
		actions:       make(map[string]ActionFactory),
		preconditions: make(map[string]PreconditionFactory),
	}

	r.RegisterAction("command", newCommandAction)
	r.RegisterAction("script", newScriptAction)
	r.RegisterAction("file", newFileAction)
	r.RegisterAction("toml", newTomlMergeAction)
	r.RegisterAction("ini", newIniSetAction)

	r.RegisterPrecondition("binary_present", newBinaryPresent)
	r.RegisterPrecondition("binary_absent", newBinaryAbsent)
	r.RegisterPrecondition("file_exists", newFileExists)
	r.RegisterPrecondition("file_absent", newFileAbsent)
	r.RegisterPrecondition("command_succeeds", newCommandSucceeds)
	r.RegisterPrecondition("version_at_least", newVersionAtLeast)

	return r
}

// RegisterAction adds an action factory under a type name.
func (r *Registry) RegisterAction(typ string, factory ActionFactory) {
	r.actions[typ] = factory
}

// RegisterPrecondition adds a precondition factory under a type name.
func (r *Registry) RegisterPrecondition(typ string, factory PreconditionFactory) {
	r.preconditions[typ] = factory
}

// ActionTypes returns the registered action type names, sorted.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actions))
	for typ := range r.actions {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// PreconditionTypes returns the registered precondition type names, sorted.
func (r *Registry) PreconditionTypes() []string {
	types := make([]string, 0, len(r.preconditions))
	for typ := range r.preconditions {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Resolve builds the action and optional precondition for a step.
// Resolution failures are catalog errors: the step references a type the
// engine does not know, or its parameters are malformed.
func (r *Registry) Resolve(step catalog.Step) (Action, Precondition, error) {
	factory, ok := r.actions[step.Action.Type]
	if !ok {
		return nil, nil, catalog.NewUnknownActionError(step.ID.String(), "action", step.Action.Type, r.ActionTypes())
	}

	act, err := factory(Params(step.Action.Params))
	if err != nil {
		return nil, nil, catalog.NewStepInvalidError(step.ID.String(), err)
	}

	if !step.HasPrecondition() {
		return act, nil, nil
	}

	preFactory, ok := r.preconditions[step.Precondition.Type]
	if !ok {
		return nil, nil, catalog.NewUnknownActionError(step.ID.String(), "precondition", step.Precondition.Type, r.PreconditionTypes())
	}

	pre, err := preFactory(Params(step.Precondition.Params))
	if err != nil {
		return nil, nil, catalog.NewStepInvalidError(step.ID.String(), err)
	}

	return act, pre, nil
}

// Validate resolves every step in the catalog, collecting all resolution
// errors instead of stopping at the first one.
func (r *Registry) Validate(cat *catalog.Catalog) []error {
	var errs []error
	for _, step := range cat.Steps() {
		if _, _, err := r.Resolve(step); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
