package engine

import (
	"time"

	"github.com/Sothcheat/provision/internal/domain/journal"
)

// EventKind distinguishes run progress events.
type EventKind string

const (
	// EventRunStarted fires once, before the first step.
	EventRunStarted EventKind = "run_started"
	// EventStepStarted fires when a step begins executing.
	EventStepStarted EventKind = "step_started"
	// EventStepFinished fires when a step's outcome is recorded.
	EventStepFinished EventKind = "step_finished"
	// EventRunFinished fires once, after the journal is finalized.
	EventRunFinished EventKind = "run_finished"
)

// Event is one run progress notification.
type Event struct {
	Kind   EventKind
	RunID  string
	StepID string
	Title  string
	// Index is the 1-based position of the step; Total the catalog size.
	Index int
	Total int

	Outcome  journal.Outcome
	Status   journal.Status
	Duration time.Duration
}

// EventSink receives run progress events. Sinks are called synchronously
// from the engine's single execution thread and must not block for long.
type EventSink func(Event)
