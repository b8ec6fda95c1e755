// Package journal holds the run journal domain: the durable, append-only
// record of step outcomes for one provisioning run.
package journal

import "fmt"

// OutcomeKind classifies the terminal result of one step execution.
type OutcomeKind string

const (
	// OutcomeSucceeded means the step's action completed without error.
	OutcomeSucceeded OutcomeKind = "succeeded"
	// OutcomeSkipped means the step's precondition decided it should
	// not run, or a prior run already completed it.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeFailedRecoverable means the action failed and the run
	// continued to the next step.
	OutcomeFailedRecoverable OutcomeKind = "failed_recoverable"
	// OutcomeFailedFatal means the action failed and the run aborted.
	OutcomeFailedFatal OutcomeKind = "failed_fatal"
)

// String returns the string representation.
func (k OutcomeKind) String() string {
	return string(k)
}

// Terminal reports whether the kind is a valid terminal step outcome.
func (k OutcomeKind) Terminal() bool {
	switch k {
	case OutcomeSucceeded, OutcomeSkipped, OutcomeFailedRecoverable, OutcomeFailedFatal:
		return true
	default:
		return false
	}
}

// Failure reports whether the kind records a failed action.
func (k OutcomeKind) Failure() bool {
	return k == OutcomeFailedRecoverable || k == OutcomeFailedFatal
}

// Outcome is the terminal result of one step execution plus its detail:
// the skip reason for Skipped, the captured error for failures.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
}

// Succeeded returns a success outcome.
func Succeeded() Outcome {
	return Outcome{Kind: OutcomeSucceeded}
}

// SucceededWithDetail returns a success outcome carrying a note, used by
// dry runs to mark the result as simulated.
func SucceededWithDetail(detail string) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Detail: detail}
}

// Skipped returns a skip outcome with the reason the step did not run.
func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Detail: reason}
}

// FailedRecoverable returns a recoverable failure outcome.
func FailedRecoverable(detail string) Outcome {
	return Outcome{Kind: OutcomeFailedRecoverable, Detail: detail}
}

// FailedFatal returns a fatal failure outcome.
func FailedFatal(detail string) Outcome {
	return Outcome{Kind: OutcomeFailedFatal, Detail: detail}
}

// String renders the outcome for logs and summaries.
func (o Outcome) String() string {
	if o.Detail == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Detail)
}
