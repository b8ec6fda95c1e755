package catalog

// Catalog is the validated, ordered collection of steps for a run.
// Order is preserved exactly as declared: the engine executes steps
// top to bottom with no reordering, because linear order is the only
// dependency information the catalog carries.
type Catalog struct {
	steps []Step
}

// Load validates an ordered sequence of steps and returns a Catalog.
// Duplicate step ids are rejected here, before any execution.
func Load(steps []Step) (*Catalog, error) {
	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if step.ID.IsZero() {
			return nil, NewMissingFieldError("", "id")
		}
		if _, dup := seen[step.ID.String()]; dup {
			return nil, NewDuplicateStepError(step.ID)
		}
		seen[step.ID.String()] = struct{}{}

		if step.Action.Type == "" {
			return nil, NewMissingFieldError(step.ID.String(), "action.type")
		}
	}

	copied := make([]Step, len(steps))
	copy(copied, steps)

	return &Catalog{steps: copied}, nil
}

// Steps returns the steps in declared order.
func (c *Catalog) Steps() []Step {
	return c.steps
}

// Len returns the number of steps.
func (c *Catalog) Len() int {
	return len(c.steps)
}

// Find returns the step with the given id, if present.
func (c *Catalog) Find(id StepID) (Step, bool) {
	for _, step := range c.steps {
		if step.ID.Equals(id) {
			return step, true
		}
	}
	return Step{}, false
}
