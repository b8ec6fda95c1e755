package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies one provisioning run.
type RunID struct {
	value string
}

// ErrEmptyRunID rejects a zero run id.
var ErrEmptyRunID = errors.New("run id cannot be empty")

// NewRunID generates a fresh run id.
func NewRunID() RunID {
	return RunID{value: uuid.NewString()}
}

// ParseRunID validates a run id supplied by the caller (e.g. --resume).
func ParseRunID(value string) (RunID, error) {
	if value == "" {
		return RunID{}, ErrEmptyRunID
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return RunID{}, err
	}
	return RunID{value: id.String()}, nil
}

// String returns the string representation.
func (id RunID) String() string {
	return id.value
}

// IsZero returns true for the zero value.
func (id RunID) IsZero() bool {
	return id.value == ""
}

// Status is the final state marker of a journal.
type Status string

const (
	// StatusRunning marks a journal whose run has not finalized. A
	// loaded journal still in this state means the process crashed or
	// was killed mid-run.
	StatusRunning Status = "running"
	// StatusCompleted marks a run that reached the end of its catalog.
	StatusCompleted Status = "completed"
	// StatusAborted marks a run halted by a fatal failure or operator
	// interrupt.
	StatusAborted Status = "aborted"
)

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// RecordType distinguishes the append-only record kinds.
type RecordType string

const (
	// RecordStarted brackets the beginning of one step execution.
	RecordStarted RecordType = "started"
	// RecordResult carries the terminal outcome of one step execution.
	RecordResult RecordType = "result"
)

// Record is one append-only journal entry. Every step execution is
// bracketed by a started record and a result record, each timestamped,
// so a crash between appends leaves a valid, resumable partial journal.
type Record struct {
	Type    RecordType  `json:"type"`
	StepID  string      `json:"step_id"`
	Outcome OutcomeKind `json:"outcome,omitempty"`
	Detail  string      `json:"detail,omitempty"`
	At      time.Time   `json:"at"`
}

// StepResult is the per-step view derived from the record stream.
type StepResult struct {
	StepID      string
	Outcome     Outcome
	StartedAt   time.Time
	EndedAt     time.Time
	ErrorDetail string
}

// Duration returns how long the step ran.
func (r StepResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Journal is the persisted record of one provisioning run. The engine is
// its sole writer; records are append-only during the run.
type Journal struct {
	runID     RunID
	startedAt time.Time
	endedAt   time.Time
	status    Status
	dryRun    bool
	records   []Record
}

// New creates a journal for a fresh run.
func New(runID RunID, startedAt time.Time) *Journal {
	return &Journal{
		runID:     runID,
		startedAt: startedAt,
		status:    StatusRunning,
	}
}

// Restore rebuilds a journal from persisted state.
func Restore(runID RunID, startedAt, endedAt time.Time, status Status, records []Record) *Journal {
	return &Journal{
		runID:     runID,
		startedAt: startedAt,
		endedAt:   endedAt,
		status:    status,
		records:   records,
	}
}

// RunID returns the run id.
func (j *Journal) RunID() RunID {
	return j.runID
}

// StartedAt returns when the run began.
func (j *Journal) StartedAt() time.Time {
	return j.startedAt
}

// EndedAt returns when the run finalized, zero while running.
func (j *Journal) EndedAt() time.Time {
	return j.endedAt
}

// Status returns the journal status.
func (j *Journal) Status() Status {
	return j.status
}

// DryRun reports whether this journal came from a dry run. Dry-run
// journals are never persisted.
func (j *Journal) DryRun() bool {
	return j.dryRun
}

// MarkDryRun flags the journal as simulated.
func (j *Journal) MarkDryRun() {
	j.dryRun = true
}

// Records returns all records in append order.
func (j *Journal) Records() []Record {
	return j.records
}

// Begin appends the started record for a step.
func (j *Journal) Begin(stepID string, at time.Time) Record {
	rec := Record{Type: RecordStarted, StepID: stepID, At: at}
	j.records = append(j.records, rec)
	return rec
}

// Finish appends the terminal outcome record for a step.
func (j *Journal) Finish(stepID string, outcome Outcome, at time.Time) Record {
	rec := Record{
		Type:    RecordResult,
		StepID:  stepID,
		Outcome: outcome.Kind,
		Detail:  outcome.Detail,
		At:      at,
	}
	j.records = append(j.records, rec)
	return rec
}

// Finalize marks the run complete or aborted.
func (j *Journal) Finalize(status Status, at time.Time) {
	j.status = status
	j.endedAt = at
}

// Results derives the ordered per-step results from the record stream.
// A started record with no matching result (crash mid-step) yields no
// entry; TerminalOutcome and Incomplete expose that case for resume.
func (j *Journal) Results() []StepResult {
	results := make([]StepResult, 0, len(j.records)/2)
	started := make(map[string]time.Time, len(j.records)/2)

	for _, rec := range j.records {
		switch rec.Type {
		case RecordStarted:
			started[rec.StepID] = rec.At
		case RecordResult:
			result := StepResult{
				StepID:    rec.StepID,
				Outcome:   Outcome{Kind: rec.Outcome, Detail: rec.Detail},
				StartedAt: started[rec.StepID],
				EndedAt:   rec.At,
			}
			if rec.Outcome.Failure() {
				result.ErrorDetail = rec.Detail
			}
			results = append(results, result)
		}
	}

	return results
}

// TerminalOutcome returns the recorded outcome for a step, if any.
func (j *Journal) TerminalOutcome(stepID string) (Outcome, bool) {
	// Scan backwards: when a resumed chain re-records a step, the most
	// recent outcome wins.
	for i := len(j.records) - 1; i >= 0; i-- {
		rec := j.records[i]
		if rec.Type == RecordResult && rec.StepID == stepID {
			return Outcome{Kind: rec.Outcome, Detail: rec.Detail}, true
		}
	}
	return Outcome{}, false
}

// Incomplete reports whether a step has a started record but no terminal
// outcome, i.e. the process died while the step was executing.
func (j *Journal) Incomplete(stepID string) bool {
	var started, finished bool
	for _, rec := range j.records {
		if rec.StepID != stepID {
			continue
		}
		switch rec.Type {
		case RecordStarted:
			started = true
		case RecordResult:
			finished = true
		}
	}
	return started && !finished
}

// Counts tallies results by outcome kind.
type Counts struct {
	Succeeded   int
	Skipped     int
	Recoverable int
	Fatal       int
}

// Total returns the number of recorded results.
func (c Counts) Total() int {
	return c.Succeeded + c.Skipped + c.Recoverable + c.Fatal
}

// Failed returns the number of failed results of either severity.
func (c Counts) Failed() int {
	return c.Recoverable + c.Fatal
}

// Count tallies the journal's results.
func (j *Journal) Count() Counts {
	var counts Counts
	for _, result := range j.Results() {
		switch result.Outcome.Kind {
		case OutcomeSucceeded:
			counts.Succeeded++
		case OutcomeSkipped:
			counts.Skipped++
		case OutcomeFailedRecoverable:
			counts.Recoverable++
		case OutcomeFailedFatal:
			counts.Fatal++
		}
	}
	return counts
}
