package engine

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/Sothcheat/provision/internal/ports"
)

// Lifecycle states of one run.
const (
	StatePending    = "pending"
	StateRunning    = "running"
	StateCompleting = "completing"
	StateCompleted  = "completed"
	StateAborted    = "aborted"
)

// Lifecycle event types.
const (
	eventStart    = "START"
	eventComplete = "COMPLETE"
	eventFinalize = "FINALIZED"
	eventAbort    = "ABORT"
)

// lifecycleContext is the statekit context type; the machine carries no
// mutable data, transitions are logged through the captured logger.
type lifecycleContext struct {
	runID string
}

// lifecycle drives the run state machine:
// pending → running → completing → completed, with aborted reachable
// from running and completing.
type lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(ctx context.Context, runID string, logger ports.Logger) (*lifecycle, error) {
	machine, err := statekit.NewMachine[lifecycleContext]("provision-run").
		WithInitial(StatePending).
		WithContext(lifecycleContext{runID: runID}).
		WithAction("logRunning", func(c *lifecycleContext, _ statekit.Event) {
			logger.Debug(ctx, "run state", ports.Run(c.runID), ports.F("state", StateRunning))
		}).
		WithAction("logCompleting", func(c *lifecycleContext, _ statekit.Event) {
			logger.Debug(ctx, "run state", ports.Run(c.runID), ports.F("state", StateCompleting))
		}).
		State(StatePending).
		On(eventStart).Target(StateRunning).Done().
		State(StateRunning).
		OnEntry("logRunning").
		On(eventComplete).Target(StateCompleting).
		On(eventAbort).Target(StateAborted).Done().
		State(StateCompleting).
		OnEntry("logCompleting").
		On(eventFinalize).Target(StateCompleted).
		On(eventAbort).Target(StateAborted).Done().
		State(StateCompleted).Done().
		State(StateAborted).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build run state machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{interp: interp}, nil
}

func (l *lifecycle) send(event string) {
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
}

// State returns the current lifecycle state.
func (l *lifecycle) State() string {
	return string(l.interp.State().Value)
}
