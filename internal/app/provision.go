// Package app provides the main application logic for provision: it
// wires the real adapters to the engine and exposes the operations the
// CLI and MCP surfaces call.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sothcheat/provision/internal/action"
	"github.com/Sothcheat/provision/internal/adapters/command"
	"github.com/Sothcheat/provision/internal/adapters/filesystem"
	journalstore "github.com/Sothcheat/provision/internal/adapters/journal"
	"github.com/Sothcheat/provision/internal/adapters/logging"
	"github.com/Sothcheat/provision/internal/domain/backup"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/engine"
	"github.com/Sothcheat/provision/internal/domain/identity"
	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/ports"
)

// Provision is the main application orchestrator.
type Provision struct {
	loader   *catalog.Loader
	registry *action.Registry
	store    journal.Store
	runner   ports.CommandRunner
	fs       ports.FileSystem
	logger   ports.Logger
	out      io.Writer

	// isRoot and resolveUser are swappable for tests.
	isRoot      func() bool
	resolveUser func() (identity.User, error)
}

// New creates a Provision application with real adapters.
func New(out io.Writer) *Provision {
	fs := filesystem.NewRealFileSystem()
	return &Provision{
		loader:      catalog.NewLoader(),
		registry:    action.NewRegistry(),
		store:       journalstore.NewFileStore(journalstore.DefaultRoot()),
		runner:      command.NewRealRunner(),
		fs:          fs,
		logger:      logging.NewConsoleLogger(),
		out:         out,
		isRoot:      identity.CurrentIsRoot,
		resolveUser: identity.ResolveInvoking,
	}
}

// WithLogger overrides the logger.
func (p *Provision) WithLogger(logger ports.Logger) *Provision {
	p.logger = logger
	return p
}

// WithStore overrides the journal store.
func (p *Provision) WithStore(store journal.Store) *Provision {
	p.store = store
	return p
}

// WithRunner overrides the command runner.
func (p *Provision) WithRunner(runner ports.CommandRunner) *Provision {
	p.runner = runner
	return p
}

// WithFileSystem overrides the filesystem.
func (p *Provision) WithFileSystem(fs ports.FileSystem) *Provision {
	p.fs = fs
	return p
}

// WithPrivilegeCheck overrides root detection, used by tests.
func (p *Provision) WithPrivilegeCheck(isRoot func() bool) *Provision {
	p.isRoot = isRoot
	return p
}

// WithUserResolver overrides invoking-user resolution, used by tests.
func (p *Provision) WithUserResolver(resolve func() (identity.User, error)) *Provision {
	p.resolveUser = resolve
	return p
}

// Registry exposes the action registry so callers can register extra
// action types before loading a catalog.
func (p *Provision) Registry() *action.Registry {
	return p.registry
}

// LoadCatalog reads and validates a catalog file.
func (p *Provision) LoadCatalog(path string) (*catalog.Catalog, error) {
	return p.loader.LoadFile(path)
}

// Validate loads a catalog and resolves every step, collecting all
// structural errors instead of stopping at the first.
func (p *Provision) Validate(path string) (*catalog.Catalog, []error) {
	cat, err := p.LoadCatalog(path)
	if err != nil {
		return nil, []error{err}
	}
	return cat, p.registry.Validate(cat)
}

// RunOptions configure one CLI-level run.
type RunOptions struct {
	DryRun      bool
	Resume      string
	StepTimeout time.Duration
	Events      engine.EventSink
}

// Run loads the catalog and executes it. The returned journal is non-nil
// whenever execution started, even for aborted runs.
func (p *Provision) Run(ctx context.Context, catalogPath string, opts RunOptions) (*journal.Journal, error) {
	cat, err := p.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	engineOpts := engine.Options{
		DryRun:      opts.DryRun,
		StepTimeout: opts.StepTimeout,
	}
	if opts.Resume != "" {
		runID, err := journal.ParseRunID(opts.Resume)
		if err != nil {
			return nil, fmt.Errorf("invalid --resume run id %q: %w", opts.Resume, err)
		}
		engineOpts.Resume = runID
	}

	runCtx, err := p.buildRunContext(cat, opts)
	if err != nil {
		return nil, err
	}

	eng := engine.New(p.store, p.registry)
	return eng.Run(ctx, cat, runCtx, engineOpts)
}

// buildRunContext resolves identity and wires the step capabilities.
func (p *Provision) buildRunContext(cat *catalog.Catalog, opts RunOptions) (engine.RunContext, error) {
	user, err := p.resolveUser()
	if err != nil {
		// Only runs whose steps switch to the invoking user need the
		// resolution; a root-only catalog can proceed without it.
		if catalogNeedsUser(cat) && !opts.DryRun {
			return engine.RunContext{}, fmt.Errorf("catalog declares run_as: user steps: %w", err)
		}
		user = identity.User{Name: "root", Home: "/root"}
	}

	return engine.RunContext{
		User:     user,
		Elevated: p.isRoot(),
		Runner:   p.runner,
		FS:       p.fs,
		Logger:   p.logger,
		Backups:  backup.NewService(p.fs),
		Events:   opts.Events,
	}, nil
}

func catalogNeedsUser(cat *catalog.Catalog) bool {
	for _, step := range cat.Steps() {
		if step.RunAs == catalog.RunAsUser {
			return true
		}
	}
	return false
}

// PlanDecision is the would-run / would-skip verdict for one step.
type PlanDecision struct {
	StepID   string
	Title    string
	WouldRun bool
	Reason   string
	Action   string
	Severity string
}

// Plan evaluates every step's precondition without executing anything:
// the read-only half of a dry run.
func (p *Provision) Plan(ctx context.Context, catalogPath string) ([]PlanDecision, error) {
	cat, err := p.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	user, err := p.resolveUser()
	if err != nil {
		user = identity.User{Name: "root", Home: "/root"}
	}

	decisions := make([]PlanDecision, 0, cat.Len())
	for _, step := range cat.Steps() {
		act, pre, err := p.registry.Resolve(step)
		if err != nil {
			return nil, err
		}

		decision := PlanDecision{
			StepID:   step.ID.String(),
			Title:    step.Title(),
			WouldRun: true,
			Action:   act.Describe(),
			Severity: step.Severity.String(),
		}

		if pre != nil {
			runCtx := action.RunContext{
				User:   user,
				RunAs:  step.RunAs,
				Env:    step.Env,
				Runner: p.runner,
				FS:     p.fs,
				Logger: p.logger,
			}
			shouldRun, reason, err := pre.Evaluate(ctx, runCtx)
			if err != nil {
				decision.WouldRun = false
				decision.Reason = "precondition error: " + err.Error()
			} else if !shouldRun {
				decision.WouldRun = false
				decision.Reason = reason
			}
		}

		decisions = append(decisions, decision)
	}

	return decisions, nil
}

// History lists persisted runs, newest first.
func (p *Provision) History() ([]journal.Summary, error) {
	return p.store.List()
}

// ShowRun loads one persisted journal.
func (p *Provision) ShowRun(runID string) (*journal.Journal, error) {
	id, err := journal.ParseRunID(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return p.store.Load(id)
}

// IsNotFound reports whether an error means "no such run".
func IsNotFound(err error) bool {
	return errors.Is(err, journal.ErrRunNotFound)
}
