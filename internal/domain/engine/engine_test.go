package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Sothcheat/provision/internal/action"
	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/ports"
)

// fakeAction is a closure-backed action for engine tests.
type fakeAction struct {
	describe string
	applyFn  func(ctx context.Context, run action.RunContext) error
}

func (a *fakeAction) Describe() string {
	return a.describe
}

func (a *fakeAction) Apply(ctx context.Context, run action.RunContext) error {
	if a.applyFn == nil {
		return nil
	}
	return a.applyFn(ctx, run)
}

// fakePrecondition is a closure-backed precondition for engine tests.
type fakePrecondition struct {
	evalFn func(ctx context.Context, run action.RunContext) (bool, string, error)
}

func (p *fakePrecondition) Describe() string {
	return "fake precondition"
}

func (p *fakePrecondition) Evaluate(ctx context.Context, run action.RunContext) (bool, string, error) {
	return p.evalFn(ctx, run)
}

// fakeResolver maps step ids to prepared fakes.
type fakeResolver struct {
	actions       map[string]*fakeAction
	preconditions map[string]*fakePrecondition
	errs          map[string]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		actions:       make(map[string]*fakeAction),
		preconditions: make(map[string]*fakePrecondition),
		errs:          make(map[string]error),
	}
}

func (r *fakeResolver) Resolve(step catalog.Step) (action.Action, action.Precondition, error) {
	id := step.ID.String()
	if err, ok := r.errs[id]; ok {
		return nil, nil, err
	}
	act, ok := r.actions[id]
	if !ok {
		act = &fakeAction{describe: "noop " + id}
		r.actions[id] = act
	}
	if pre, ok := r.preconditions[id]; ok {
		return act, pre, nil
	}
	return act, nil, nil
}

// fakeStore is an in-memory journal.Store tracking every call.
type fakeStore struct {
	begun     []string
	appends   map[string][]journal.Record
	finalized map[string]journal.Status
	prior     map[string]*journal.Journal
	beginErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appends:   make(map[string][]journal.Record),
		finalized: make(map[string]journal.Status),
		prior:     make(map[string]*journal.Journal),
	}
}

func (s *fakeStore) Begin(j *journal.Journal) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.begun = append(s.begun, j.RunID().String())
	return nil
}

func (s *fakeStore) Append(runID journal.RunID, rec journal.Record) error {
	s.appends[runID.String()] = append(s.appends[runID.String()], rec)
	return nil
}

func (s *fakeStore) Finalize(runID journal.RunID, status journal.Status, _ time.Time) error {
	s.finalized[runID.String()] = status
	return nil
}

func (s *fakeStore) Load(runID journal.RunID) (*journal.Journal, error) {
	j, ok := s.prior[runID.String()]
	if !ok {
		return nil, &journal.NotFoundError{RunID: runID.String()}
	}
	return j, nil
}

func (s *fakeStore) List() ([]journal.Summary, error) {
	return nil, nil
}

// captureLogger records warn and error messages.
type captureLogger struct {
	warns  *[]string
	errors *[]string
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{warns: &[]string{}, errors: &[]string{}}
}

func (l *captureLogger) Debug(_ context.Context, _ string, _ ...ports.Field) {}
func (l *captureLogger) Info(_ context.Context, _ string, _ ...ports.Field)  {}

func (l *captureLogger) Warn(_ context.Context, msg string, _ ...ports.Field) {
	*l.warns = append(*l.warns, msg)
}

func (l *captureLogger) Error(_ context.Context, msg string, _ ...ports.Field) {
	*l.errors = append(*l.errors, msg)
}

func (l *captureLogger) With(_ ...ports.Field) ports.Logger { return l }
func (l *captureLogger) Level() ports.Level                 { return ports.LevelDebug }
func (l *captureLogger) SetLevel(_ ports.Level)             {}

func testStep(id string, severity catalog.Severity) catalog.Step {
	return catalog.Step{
		ID:       catalog.MustNewStepID(id),
		Severity: severity,
		RunAs:    catalog.RunAsRoot,
		Action:   catalog.ActionSpec{Type: "command"},
	}
}

func guardedStep(id string, severity catalog.Severity) catalog.Step {
	step := testStep(id, severity)
	step.Precondition = &catalog.PreconditionSpec{Type: "binary_absent"}
	return step
}

func mustCatalog(t *testing.T, steps ...catalog.Step) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(steps)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return cat
}

func testRunContext(logger ports.Logger) RunContext {
	return RunContext{Elevated: true, Logger: logger}
}

func TestEngine_RunsStepsInDeclaredOrder(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	var applied []string
	for _, id := range []string{"a", "b", "c"} {
		id := id
		resolver.actions[id] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
			applied = append(applied, id)
			return nil
		}}
	}

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityFatal),
		testStep("b", catalog.SeverityRecoverable),
		testStep("c", catalog.SeverityFatal),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got, want := fmt.Sprint(applied), fmt.Sprint([]string{"a", "b", "c"}); got != want {
		t.Errorf("apply order = %s, want %s", got, want)
	}
	if jnl.Status() != journal.StatusCompleted {
		t.Errorf("status = %q, want %q", jnl.Status(), journal.StatusCompleted)
	}
	if counts := jnl.Count(); counts.Succeeded != 3 {
		t.Errorf("succeeded = %d, want 3", counts.Succeeded)
	}
	if len(store.begun) != 1 {
		t.Errorf("store.Begin calls = %d, want 1", len(store.begun))
	}
	// Each step appends a started and a result record.
	if got := len(store.appends[jnl.RunID().String()]); got != 6 {
		t.Errorf("persisted records = %d, want 6", got)
	}
	if store.finalized[jnl.RunID().String()] != journal.StatusCompleted {
		t.Errorf("persisted status = %q, want completed", store.finalized[jnl.RunID().String()])
	}
}

func TestEngine_FatalFailureAborts(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["b"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		return errors.New("repo refused")
	}}
	cApplied := false
	resolver.actions["c"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		cApplied = true
		return nil
	}}

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityRecoverable),
		testStep("b", catalog.SeverityFatal),
		testStep("c", catalog.SeverityRecoverable),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	var aborted *AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("Run() error type = %T, want *AbortedError", err)
	}
	if aborted.StepID != "b" {
		t.Errorf("aborted step = %q, want \"b\"", aborted.StepID)
	}

	if cApplied {
		t.Error("step after the fatal failure must not run")
	}
	results := jnl.Results()
	if len(results) != 2 {
		t.Fatalf("results len = %d, want 2 (steps before and at the failure)", len(results))
	}
	if results[1].Outcome.Kind != journal.OutcomeFailedFatal {
		t.Errorf("failing step outcome = %q, want %q", results[1].Outcome.Kind, journal.OutcomeFailedFatal)
	}
	if jnl.Status() != journal.StatusAborted {
		t.Errorf("status = %q, want aborted", jnl.Status())
	}
	if store.finalized[jnl.RunID().String()] != journal.StatusAborted {
		t.Errorf("persisted status = %q, want aborted", store.finalized[jnl.RunID().String()])
	}
}

func TestEngine_RecoverableFailureContinues(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		return errors.New("package not in repo")
	}}

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityRecoverable),
		testStep("b", catalog.SeverityRecoverable),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v; a recoverable failure must not fail the run", err)
	}

	counts := jnl.Count()
	if counts.Recoverable != 1 {
		t.Errorf("recoverable = %d, want 1", counts.Recoverable)
	}
	if counts.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", counts.Succeeded)
	}
	if jnl.Status() != journal.StatusCompleted {
		t.Errorf("status = %q, want completed", jnl.Status())
	}
}

func TestEngine_PreconditionSkips(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	applied := false
	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		applied = true
		return nil
	}}
	resolver.preconditions["a"] = &fakePrecondition{evalFn: func(_ context.Context, _ action.RunContext) (bool, string, error) {
		return false, "binary already installed", nil
	}}

	cat := mustCatalog(t, guardedStep("a", catalog.SeverityFatal))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if applied {
		t.Error("action must not run when the precondition holds it back")
	}
	outcome, ok := jnl.TerminalOutcome("a")
	if !ok {
		t.Fatal("no outcome recorded for a")
	}
	if outcome.Kind != journal.OutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome.Kind)
	}
	if outcome.Detail != "binary already installed" {
		t.Errorf("skip reason = %q", outcome.Detail)
	}
}

func TestEngine_PreconditionErrorSkips(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	applied := false
	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		applied = true
		return nil
	}}
	resolver.preconditions["a"] = &fakePrecondition{evalFn: func(_ context.Context, _ action.RunContext) (bool, string, error) {
		return false, "", errors.New("probe exploded")
	}}

	cat := mustCatalog(t, guardedStep("a", catalog.SeverityFatal))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v; a failed probe must not fail the run", err)
	}

	if applied {
		t.Error("action must not run when the precondition errors")
	}
	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome.Kind)
	}
	if !strings.HasPrefix(outcome.Detail, "precondition error:") {
		t.Errorf("skip detail = %q, want precondition error prefix", outcome.Detail)
	}
}

func TestEngine_DryRun(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	applied := false
	resolver.actions["a"] = &fakeAction{
		describe: "install lazygit",
		applyFn: func(_ context.Context, _ action.RunContext) error {
			applied = true
			return nil
		},
	}

	cat := mustCatalog(t, testStep("a", catalog.SeverityFatal))

	// Dry runs work without elevation.
	runCtx := RunContext{Elevated: false, Logger: newCaptureLogger()}

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, runCtx, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if applied {
		t.Error("dry run must not apply actions")
	}
	if !jnl.DryRun() {
		t.Error("journal should be marked dry-run")
	}
	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeSucceeded {
		t.Errorf("outcome = %q, want succeeded", outcome.Kind)
	}
	if outcome.Detail != "simulated: install lazygit" {
		t.Errorf("detail = %q", outcome.Detail)
	}

	if len(store.begun) != 0 || len(store.appends) != 0 || len(store.finalized) != 0 {
		t.Error("dry-run journals must not be persisted")
	}
}

func TestEngine_RealRunRequiresElevation(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()
	cat := mustCatalog(t, testStep("a", catalog.SeverityFatal))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, RunContext{Elevated: false, Logger: newCaptureLogger()}, Options{})

	if !errors.Is(err, ErrPrivilege) {
		t.Fatalf("Run() error = %v, want ErrPrivilege", err)
	}
	if jnl != nil {
		t.Error("no journal should exist for a refused run")
	}
	if len(store.begun) != 0 {
		t.Error("a refused run must not touch the store")
	}
}

func TestEngine_ResolutionFailureRunsNothing(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	applied := false
	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		applied = true
		return nil
	}}
	resolver.errs["b"] = catalog.NewUnknownActionError("b", "action", "comand", []string{"command"})

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityFatal),
		testStep("b", catalog.SeverityFatal),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})

	if err == nil {
		t.Fatal("Run() should reject a catalog with an unresolvable step")
	}
	if jnl != nil {
		t.Error("no journal should exist when the catalog is rejected")
	}
	if applied {
		t.Error("zero steps must run when any step fails to resolve")
	}
	if len(store.begun) != 0 {
		t.Error("a rejected catalog must not touch the store")
	}
}

func TestEngine_ResumeSkipsCompletedSteps(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	now := time.Now()
	priorID := journal.NewRunID()
	prior := journal.New(priorID, now)
	prior.Begin("a", now)
	prior.Finish("a", journal.Succeeded(), now)
	prior.Begin("b", now)
	prior.Finish("b", journal.Skipped("guard held"), now)
	prior.Begin("c", now)
	prior.Finish("c", journal.FailedRecoverable("transient"), now)
	prior.Begin("d", now) // crashed mid-step, no result
	prior.Finalize(journal.StatusAborted, now)
	store.prior[priorID.String()] = prior

	var applied []string
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		id := id
		resolver.actions[id] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
			applied = append(applied, id)
			return nil
		}}
	}

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityFatal),
		testStep("b", catalog.SeverityRecoverable),
		testStep("c", catalog.SeverityRecoverable),
		testStep("d", catalog.SeverityFatal),
		testStep("e", catalog.SeverityFatal),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{Resume: priorID})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Succeeded and skipped steps self-skip; the prior failure, the
	// crashed step, and the never-reached step re-execute.
	if got, want := fmt.Sprint(applied), fmt.Sprint([]string{"c", "d", "e"}); got != want {
		t.Errorf("applied = %s, want %s", got, want)
	}

	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeSkipped {
		t.Errorf("a outcome = %q, want skipped", outcome.Kind)
	}
	wantReason := fmt.Sprintf("already succeeded in run %s", priorID)
	if outcome.Detail != wantReason {
		t.Errorf("a skip reason = %q, want %q", outcome.Detail, wantReason)
	}

	if jnl.RunID().String() == priorID.String() {
		t.Error("a resumed run must get a fresh run id")
	}
}

func TestEngine_ResumeUnknownRun(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()
	cat := mustCatalog(t, testStep("a", catalog.SeverityFatal))

	eng := New(store, resolver)
	_, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{Resume: journal.NewRunID()})

	if !errors.Is(err, journal.ErrRunNotFound) {
		t.Fatalf("Run() error = %v, want ErrRunNotFound", err)
	}
	if len(store.begun) != 0 {
		t.Error("nothing should run when the resume journal is missing")
	}
}

func TestEngine_ResumeWarnsOnRepeatedSuccess(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	now := time.Now()
	priorID := journal.NewRunID()
	prior := journal.New(priorID, now)
	prior.Begin("a", now) // crashed mid-step; conservatively re-executed
	prior.Finalize(journal.StatusAborted, now)
	store.prior[priorID.String()] = prior

	// Step a has no precondition, so the engine cannot verify the
	// repeated execution was idempotent.
	cat := mustCatalog(t, testStep("a", catalog.SeverityRecoverable))

	logger := newCaptureLogger()
	eng := New(store, resolver)
	if _, err := eng.Run(context.Background(), cat, testRunContext(logger), Options{Resume: priorID}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	found := false
	for _, warn := range *logger.warns {
		if strings.Contains(warn, "idempotent") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an idempotence warning, got warns %v", *logger.warns)
	}
}

func TestEngine_ResumeDoesNotWarnOnRetriedFailure(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	now := time.Now()
	priorID := journal.NewRunID()
	prior := journal.New(priorID, now)
	prior.Begin("a", now)
	prior.Finish("a", journal.FailedRecoverable("exit 1"), now)
	prior.Finalize(journal.StatusCompleted, now)
	store.prior[priorID.String()] = prior

	// First success after a prior failure is a retry, not a repeat.
	cat := mustCatalog(t, testStep("a", catalog.SeverityRecoverable))

	logger := newCaptureLogger()
	eng := New(store, resolver)
	if _, err := eng.Run(context.Background(), cat, testRunContext(logger), Options{Resume: priorID}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, warn := range *logger.warns {
		if strings.Contains(warn, "idempotent") {
			t.Errorf("unexpected idempotence warning: %q", warn)
		}
	}
}

func TestEngine_CancellationAtStepBoundary(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	ctx, cancel := context.WithCancel(context.Background())
	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		cancel() // operator interrupt while the step is running
		return nil
	}}
	bApplied := false
	resolver.actions["b"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		bApplied = true
		return nil
	}}

	cat := mustCatalog(t,
		testStep("a", catalog.SeverityFatal),
		testStep("b", catalog.SeverityFatal),
	)

	eng := New(store, resolver)
	jnl, err := eng.Run(ctx, cat, testRunContext(newCaptureLogger()), Options{})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	if bApplied {
		t.Error("no further step may start after cancellation")
	}

	// The in-flight step ran to completion and its outcome is recorded.
	outcome, ok := jnl.TerminalOutcome("a")
	if !ok {
		t.Fatal("interrupted run must keep the completed step's outcome")
	}
	if outcome.Kind != journal.OutcomeSucceeded {
		t.Errorf("a outcome = %q, want succeeded", outcome.Kind)
	}
	if jnl.Status() != journal.StatusAborted {
		t.Errorf("status = %q, want aborted", jnl.Status())
	}
}

func TestEngine_StepTimeout(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["a"] = &fakeAction{applyFn: func(ctx context.Context, _ action.RunContext) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	step := testStep("a", catalog.SeverityRecoverable)
	step.Timeout = 10 * time.Millisecond
	cat := mustCatalog(t, step, testStep("b", catalog.SeverityRecoverable))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v; a recoverable timeout must not abort", err)
	}

	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeFailedRecoverable {
		t.Errorf("outcome = %q, want failed_recoverable", outcome.Kind)
	}
	if outcome.Detail != "timeout after 10ms" {
		t.Errorf("detail = %q, want \"timeout after 10ms\"", outcome.Detail)
	}

	// The next step still runs.
	if _, ok := jnl.TerminalOutcome("b"); !ok {
		t.Error("step after a recoverable timeout should run")
	}
}

func TestEngine_FatalTimeoutAborts(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["a"] = &fakeAction{applyFn: func(ctx context.Context, _ action.RunContext) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	step := testStep("a", catalog.SeverityFatal)
	step.Timeout = 10 * time.Millisecond
	cat := mustCatalog(t, step)

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeFailedFatal {
		t.Errorf("outcome = %q, want failed_fatal", outcome.Kind)
	}
}

func TestEngine_RunLevelTimeout(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["a"] = &fakeAction{applyFn: func(ctx context.Context, _ action.RunContext) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	cat := mustCatalog(t, testStep("a", catalog.SeverityRecoverable))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{StepTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Detail != "timeout" {
		t.Errorf("detail = %q, want \"timeout\" (no step-declared bound)", outcome.Detail)
	}
}

func TestEngine_BackupFailureForcedFatal(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	resolver.actions["a"] = &fakeAction{applyFn: func(_ context.Context, _ action.RunContext) error {
		return &backup.Error{
			Target:     "/etc/dnf/dnf.conf",
			BackupPath: "/etc/dnf/dnf.conf.bak.20260301-120000",
			Underlying: errors.New("read-only file system"),
		}
	}}

	// Declared recoverable, escalated anyway.
	cat := mustCatalog(t, testStep("a", catalog.SeverityRecoverable))

	eng := New(store, resolver)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	outcome, _ := jnl.TerminalOutcome("a")
	if outcome.Kind != journal.OutcomeFailedFatal {
		t.Errorf("outcome = %q, want failed_fatal regardless of declared severity", outcome.Kind)
	}
}

func TestEngine_EmitsEvents(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	var kinds []EventKind
	runCtx := testRunContext(newCaptureLogger())
	runCtx.Events = func(event Event) {
		kinds = append(kinds, event.Kind)
	}

	cat := mustCatalog(t, testStep("a", catalog.SeverityFatal))

	eng := New(store, resolver)
	if _, err := eng.Run(context.Background(), cat, runCtx, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []EventKind{EventRunStarted, EventStepStarted, EventStepFinished, EventRunFinished}
	if got := fmt.Sprint(kinds); got != fmt.Sprint(want) {
		t.Errorf("event kinds = %s, want %s", got, fmt.Sprint(want))
	}
}

func TestEngine_ClockDrivesRecordTimestamps(t *testing.T) {
	store := newFakeStore()
	resolver := newFakeResolver()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		at = at.Add(time.Second)
		return at
	}

	cat := mustCatalog(t, testStep("a", catalog.SeverityFatal))

	eng := New(store, resolver).WithClock(clock)
	jnl, err := eng.Run(context.Background(), cat, testRunContext(newCaptureLogger()), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	results := jnl.Results()
	if len(results) != 1 {
		t.Fatalf("results len = %d, want 1", len(results))
	}
	if results[0].Duration() != time.Second {
		t.Errorf("duration = %v, want 1s from the injected clock", results[0].Duration())
	}
}
