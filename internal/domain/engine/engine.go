// Package engine executes a step catalog strictly in declared order,
// recording every step transition in the run journal. It is the sole
// journal writer; each append is persisted before the next step starts,
// so a crash at any point leaves a valid, resumable partial journal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sothcheat/provision/internal/action"
	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/ports"
)

// StepResolver turns a catalog step into its executable action and
// optional precondition. The action registry implements it.
type StepResolver interface {
	Resolve(step catalog.Step) (action.Action, action.Precondition, error)
}

// Engine runs catalogs. Execution is single-threaded and strictly
// sequential: linear catalog order is the only dependency information
// available, so no reordering or parallelism is ever applied.
type Engine struct {
	store    journal.Store
	resolver StepResolver
	now      func() time.Time
}

// New creates an engine.
func New(store journal.Store, resolver StepResolver) *Engine {
	return &Engine{store: store, resolver: resolver, now: time.Now}
}

// WithClock overrides the timestamp source, used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{store: e.store, resolver: e.resolver, now: now}
}

// resolvedStep pairs a catalog step with its executable parts.
type resolvedStep struct {
	step catalog.Step
	act  action.Action
	pre  action.Precondition
}

// Run executes the catalog and returns the finalized journal. The
// journal is returned even on failure so the caller can summarize what
// happened; errors.Is(err, ErrAborted) distinguishes an aborted run.
func (e *Engine) Run(ctx context.Context, cat *catalog.Catalog, runCtx RunContext, opts Options) (*journal.Journal, error) {
	if !opts.DryRun && !runCtx.Elevated {
		return nil, ErrPrivilege
	}

	// Resolve every step before executing any: a catalog referencing an
	// unknown action type is rejected with zero steps run.
	resolved := make([]resolvedStep, 0, cat.Len())
	for _, step := range cat.Steps() {
		act, pre, err := e.resolver.Resolve(step)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedStep{step: step, act: act, pre: pre})
	}

	var prior *journal.Journal
	if !opts.Resume.IsZero() {
		loaded, err := e.store.Load(opts.Resume)
		if err != nil {
			return nil, fmt.Errorf("resume run %s: %w", opts.Resume, err)
		}
		prior = loaded
	}

	logger := runCtx.Logger
	jnl := journal.New(journal.NewRunID(), e.now())
	if opts.DryRun {
		jnl.MarkDryRun()
	} else {
		if err := e.store.Begin(jnl); err != nil {
			return nil, fmt.Errorf("begin journal: %w", err)
		}
	}

	life, err := newLifecycle(ctx, jnl.RunID().String(), logger)
	if err != nil {
		return nil, err
	}
	life.send(eventStart)

	logger.Info(ctx, "run started",
		ports.Run(jnl.RunID().String()),
		ports.F("steps", cat.Len()),
		ports.F("dry_run", opts.DryRun),
	)
	runCtx.emit(Event{Kind: EventRunStarted, RunID: jnl.RunID().String(), Total: cat.Len()})

	for i, rs := range resolved {
		// Cancellation is honored only at step boundaries: the current
		// step ran to completion and its result is already recorded.
		if ctx.Err() != nil {
			return e.abort(ctx, jnl, life, runCtx, opts, "", "interrupted by operator")
		}

		outcome := e.executeStep(ctx, jnl, runCtx, opts, prior, rs, i, cat.Len())

		if outcome.Kind == journal.OutcomeFailedFatal {
			return e.abort(ctx, jnl, life, runCtx, opts, rs.step.ID.String(), outcome.Detail)
		}
	}

	life.send(eventComplete)
	jnl.Finalize(journal.StatusCompleted, e.now())
	if !opts.DryRun {
		if err := e.store.Finalize(jnl.RunID(), journal.StatusCompleted, jnl.EndedAt()); err != nil {
			return jnl, fmt.Errorf("finalize journal: %w", err)
		}
	}
	life.send(eventFinalize)

	counts := jnl.Count()
	logger.Info(ctx, "run completed",
		ports.Run(jnl.RunID().String()),
		ports.F("state", life.State()),
		ports.F("succeeded", counts.Succeeded),
		ports.F("skipped", counts.Skipped),
		ports.F("failed", counts.Failed()),
	)
	runCtx.emit(Event{Kind: EventRunFinished, RunID: jnl.RunID().String(), Status: journal.StatusCompleted})

	return jnl, nil
}

// executeStep runs one step through the full bracket: started append,
// precondition, action under the failure boundary, outcome append.
func (e *Engine) executeStep(ctx context.Context, jnl *journal.Journal, runCtx RunContext, opts Options, prior *journal.Journal, rs resolvedStep, index, total int) journal.Outcome {
	step := rs.step
	stepID := step.ID.String()
	logger := runCtx.Logger.With(ports.Step(stepID))

	runCtx.emit(Event{
		Kind:   EventStepStarted,
		RunID:  jnl.RunID().String(),
		StepID: stepID,
		Title:  step.Title(),
		Index:  index + 1,
		Total:  total,
	})

	startedAt := e.now()
	e.append(ctx, logger, jnl, opts, jnl.Begin(stepID, startedAt))
	logger.Info(ctx, "step started", ports.F("title", step.Title()))

	outcome := e.decideOutcome(ctx, runCtx, opts, prior, rs)

	endedAt := e.now()
	e.append(ctx, logger, jnl, opts, jnl.Finish(stepID, outcome, endedAt))

	duration := endedAt.Sub(startedAt)
	switch outcome.Kind {
	case journal.OutcomeSucceeded:
		logger.Info(ctx, "step succeeded", ports.F("duration", duration.Round(time.Millisecond).String()))
		e.warnIfRepeatedSuccess(ctx, logger, prior, step)
	case journal.OutcomeSkipped:
		logger.Info(ctx, "step skipped", ports.F("reason", outcome.Detail))
	case journal.OutcomeFailedRecoverable:
		logger.Warn(ctx, "step failed, continuing", ports.F("detail", outcome.Detail))
	case journal.OutcomeFailedFatal:
		logger.Error(ctx, "step failed fatally", ports.F("detail", outcome.Detail))
	}

	runCtx.emit(Event{
		Kind:     EventStepFinished,
		RunID:    jnl.RunID().String(),
		StepID:   stepID,
		Title:    step.Title(),
		Index:    index + 1,
		Total:    total,
		Outcome:  outcome,
		Duration: duration,
	})

	return outcome
}

// decideOutcome classifies one step execution without touching the
// journal.
func (e *Engine) decideOutcome(ctx context.Context, runCtx RunContext, opts Options, prior *journal.Journal, rs resolvedStep) journal.Outcome {
	step := rs.step
	stepID := step.ID.String()

	// Resume: a step the prior run already completed self-skips. A step
	// with a started record but no outcome crashed mid-run and is
	// conservatively re-executed.
	if prior != nil {
		if priorOutcome, ok := prior.TerminalOutcome(stepID); ok {
			switch priorOutcome.Kind {
			case journal.OutcomeSucceeded, journal.OutcomeSkipped:
				return journal.Skipped(fmt.Sprintf("already %s in run %s", priorOutcome.Kind, prior.RunID()))
			}
		}
	}

	actionRun := action.RunContext{
		User:    runCtx.User,
		RunAs:   step.RunAs,
		Env:     step.Env,
		Runner:  runCtx.Runner,
		FS:      runCtx.FS,
		Logger:  runCtx.Logger,
		Backups: runCtx.Backups,
	}

	stepCtx, cancel := e.boundContext(ctx, opts, step)
	defer cancel()

	if rs.pre != nil {
		shouldRun, reason, err := rs.pre.Evaluate(stepCtx, actionRun)
		if err != nil {
			// A failed probe is not a failed step: record the skip with
			// the error as the reason and keep going.
			return journal.Skipped("precondition error: " + err.Error())
		}
		if !shouldRun {
			return journal.Skipped(reason)
		}
	}

	if opts.DryRun {
		return journal.SucceededWithDetail("simulated: " + rs.act.Describe())
	}

	if err := rs.act.Apply(stepCtx, actionRun); err != nil {
		return classifyFailure(stepCtx, step, err)
	}

	return journal.Succeeded()
}

// boundContext applies the step's timeout, falling back to the run-level
// one. Zero means the action's own blocking behavior governs.
func (e *Engine) boundContext(ctx context.Context, opts Options, step catalog.Step) (context.Context, context.CancelFunc) {
	timeout := step.Timeout
	if timeout == 0 {
		timeout = opts.StepTimeout
	}
	if timeout == 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyFailure maps an action error to a journal outcome: backup
// failures are forced fatal, timeouts keep the step's declared severity,
// everything else follows the declaration.
func classifyFailure(stepCtx context.Context, step catalog.Step, err error) journal.Outcome {
	var backupErr *backup.Error
	if errors.As(err, &backupErr) {
		return journal.FailedFatal(err.Error())
	}

	detail := err.Error()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		detail = "timeout"
		if step.Timeout > 0 {
			detail = fmt.Sprintf("timeout after %s", step.Timeout)
		}
	}

	if step.Severity == catalog.SeverityFatal {
		return journal.FailedFatal(detail)
	}
	return journal.FailedRecoverable(detail)
}

// warnIfRepeatedSuccess flags a precondition-less step that succeeded on
// a resumed run even though a prior attempt already ran it. The engine
// cannot verify natural idempotence, so it calls the repeat out.
func (e *Engine) warnIfRepeatedSuccess(ctx context.Context, logger ports.Logger, prior *journal.Journal, step catalog.Step) {
	if prior == nil || step.HasPrecondition() {
		return
	}

	// Only a prior success or an unterminated bracket counts as a prior
	// run: a step that failed before is being retried, not repeated.
	stepID := step.ID.String()
	priorOutcome, finished := prior.TerminalOutcome(stepID)
	ranBefore := prior.Incomplete(stepID) ||
		(finished && priorOutcome.Kind == journal.OutcomeSucceeded)
	if ranBefore {
		logger.Warn(ctx, "step without precondition succeeded again on resume; verify the action is idempotent")
	}
}

// append persists one journal record. Dry runs keep the journal in
// memory only. A failed append is logged but does not fail the step:
// the in-memory journal still carries the outcome for the summary.
func (e *Engine) append(ctx context.Context, logger ports.Logger, jnl *journal.Journal, opts Options, rec journal.Record) {
	if opts.DryRun {
		return
	}
	if err := e.store.Append(jnl.RunID(), rec); err != nil {
		logger.Error(ctx, "journal append failed", ports.Err(err))
	}
}

// abort finalizes the journal as aborted and returns the typed error.
func (e *Engine) abort(ctx context.Context, jnl *journal.Journal, life *lifecycle, runCtx RunContext, opts Options, stepID, detail string) (*journal.Journal, error) {
	life.send(eventAbort)
	jnl.Finalize(journal.StatusAborted, e.now())
	if !opts.DryRun {
		_ = e.store.Finalize(jnl.RunID(), journal.StatusAborted, jnl.EndedAt())
	}

	runCtx.Logger.Error(ctx, "run aborted",
		ports.Run(jnl.RunID().String()),
		ports.F("state", life.State()),
		ports.Step(stepID),
		ports.F("detail", detail),
	)
	runCtx.emit(Event{Kind: EventRunFinished, RunID: jnl.RunID().String(), Status: journal.StatusAborted})

	return jnl, &AbortedError{RunID: jnl.RunID().String(), StepID: stepID, Detail: detail}
}
