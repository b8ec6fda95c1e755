// Package mcp exposes provision operations as MCP (Model Context
// Protocol) tools so AI agents can plan, validate, and drive runs.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/Sothcheat/provision/internal/app"
	"github.com/Sothcheat/provision/internal/domain/engine"
	"github.com/Sothcheat/provision/internal/domain/journal"
)

// VersionInfo carries build metadata for the status outputs.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// PlanInput is the input for the provision_plan tool.
type PlanInput struct {
	CatalogPath string `json:"catalog_path,omitempty" jsonschema:"description=Path to the catalog YAML (default: provision.yaml)"`
}

// PlanStep is one step's would-run decision.
type PlanStep struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	WouldRun bool   `json:"would_run"`
	Reason   string `json:"reason,omitempty"`
	Action   string `json:"action"`
	Severity string `json:"severity"`
}

// PlanOutput is the output for the provision_plan tool.
type PlanOutput struct {
	Total     int        `json:"total"`
	WouldRun  int        `json:"would_run"`
	WouldSkip int        `json:"would_skip"`
	Steps     []PlanStep `json:"steps"`
}

// RunInput is the input for the provision_run tool.
type RunInput struct {
	CatalogPath string `json:"catalog_path,omitempty" jsonschema:"description=Path to the catalog YAML (default: provision.yaml)"`
	DryRun      bool   `json:"dry_run,omitempty" jsonschema:"description=Simulate the run without side effects"`
	Resume      string `json:"resume,omitempty" jsonschema:"description=Run id of a prior journal to resume from"`
	Confirm     bool   `json:"confirm" jsonschema:"required,description=Must be true to execute a real run (safety confirmation)"`
}

// RunStepResult is one recorded step outcome.
type RunStepResult struct {
	StepID  string `json:"step_id"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// RunOutput is the output for the provision_run tool.
type RunOutput struct {
	RunID     string          `json:"run_id,omitempty"`
	Status    string          `json:"status"`
	DryRun    bool            `json:"dry_run"`
	Succeeded int             `json:"succeeded"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Results   []RunStepResult `json:"results,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ValidateInput is the input for the provision_validate tool.
type ValidateInput struct {
	CatalogPath string `json:"catalog_path,omitempty" jsonschema:"description=Path to the catalog YAML (default: provision.yaml)"`
}

// ValidateOutput is the output for the provision_validate tool.
type ValidateOutput struct {
	Valid  bool     `json:"valid"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

// HistoryInput is the input for the provision_history tool.
type HistoryInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"description=Show the step records of one run instead of the listing"`
}

// HistoryRun is one run in the listing.
type HistoryRun struct {
	RunID     string `json:"run_id"`
	StartedAt string `json:"started_at"`
	Status    string `json:"status"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// HistoryOutput is the output for the provision_history tool.
type HistoryOutput struct {
	Runs    []HistoryRun    `json:"runs,omitempty"`
	Results []RunStepResult `json:"results,omitempty"`
}

// RegisterAll registers every provision tool on the server.
func RegisterAll(srv *mcp.Server, provision *app.Provision, defaultCatalog string, versionInfo VersionInfo) {
	registerPlanTool(srv, provision, defaultCatalog)
	registerRunTool(srv, provision, defaultCatalog)
	registerValidateTool(srv, provision, defaultCatalog)
	registerHistoryTool(srv, provision)
}

func catalogOrDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

func registerPlanTool(srv *mcp.Server, provision *app.Provision, defaultCatalog string) {
	srv.Tool("provision_plan").
		Description("Evaluate step preconditions and report the would-run / would-skip decision per step, without executing anything.").
		ReadOnly().
		Handler(func(ctx context.Context, in PlanInput) (*PlanOutput, error) {
			decisions, err := provision.Plan(ctx, catalogOrDefault(in.CatalogPath, defaultCatalog))
			if err != nil {
				return nil, err
			}

			output := &PlanOutput{
				Total: len(decisions),
				Steps: make([]PlanStep, 0, len(decisions)),
			}
			for _, d := range decisions {
				if d.WouldRun {
					output.WouldRun++
				} else {
					output.WouldSkip++
				}
				output.Steps = append(output.Steps, PlanStep{
					ID:       d.StepID,
					Title:    d.Title,
					WouldRun: d.WouldRun,
					Reason:   d.Reason,
					Action:   d.Action,
					Severity: d.Severity,
				})
			}

			return output, nil
		})
}

func registerRunTool(srv *mcp.Server, provision *app.Provision, defaultCatalog string) {
	srv.Tool("provision_run").
		Description("Execute the catalog. REQUIRES confirm=true for a real run; dry_run=true simulates without side effects.").
		Destructive().
		Handler(func(ctx context.Context, in RunInput) (*RunOutput, error) {
			if !in.Confirm && !in.DryRun {
				return &RunOutput{
					Status: "refused",
					Error:  "a real run requires confirm=true",
				}, nil
			}

			jnl, runErr := provision.Run(ctx, catalogOrDefault(in.CatalogPath, defaultCatalog), app.RunOptions{
				DryRun: in.DryRun,
				Resume: in.Resume,
			})
			if jnl == nil {
				return nil, runErr
			}

			output := journalToRunOutput(jnl)
			if runErr != nil && !errors.Is(runErr, engine.ErrAborted) {
				output.Error = runErr.Error()
			}
			return output, nil
		})
}

func registerValidateTool(srv *mcp.Server, provision *app.Provision, defaultCatalog string) {
	srv.Tool("provision_validate").
		Description("Load the catalog and report all structural errors (duplicate ids, unknown action types, malformed parameters) without executing.").
		ReadOnly().
		Handler(func(_ context.Context, in ValidateInput) (*ValidateOutput, error) {
			cat, errs := provision.Validate(catalogOrDefault(in.CatalogPath, defaultCatalog))

			output := &ValidateOutput{Valid: len(errs) == 0}
			if cat != nil {
				output.Steps = cat.Len()
			}
			for _, err := range errs {
				output.Errors = append(output.Errors, err.Error())
			}

			return output, nil
		})
}

func registerHistoryTool(srv *mcp.Server, provision *app.Provision) {
	srv.Tool("provision_history").
		Description("List persisted runs newest first, or show the step records of one run when run_id is given.").
		ReadOnly().
		Handler(func(_ context.Context, in HistoryInput) (*HistoryOutput, error) {
			if in.RunID != "" {
				jnl, err := provision.ShowRun(in.RunID)
				if err != nil {
					if app.IsNotFound(err) {
						return nil, fmt.Errorf("run %q not found", in.RunID)
					}
					return nil, err
				}
				output := &HistoryOutput{}
				for _, result := range jnl.Results() {
					output.Results = append(output.Results, RunStepResult{
						StepID:  result.StepID,
						Outcome: result.Outcome.Kind.String(),
						Detail:  result.Outcome.Detail,
					})
				}
				return output, nil
			}

			summaries, err := provision.History()
			if err != nil {
				return nil, err
			}

			output := &HistoryOutput{Runs: make([]HistoryRun, 0, len(summaries))}
			for _, s := range summaries {
				output.Runs = append(output.Runs, HistoryRun{
					RunID:     s.RunID.String(),
					StartedAt: s.StartedAt.Format(time.RFC3339),
					Status:    string(s.Status),
					Succeeded: s.Counts.Succeeded,
					Skipped:   s.Counts.Skipped,
					Failed:    s.Counts.Failed(),
				})
			}

			return output, nil
		})
}

func journalToRunOutput(jnl *journal.Journal) *RunOutput {
	counts := jnl.Count()
	output := &RunOutput{
		RunID:     jnl.RunID().String(),
		Status:    string(jnl.Status()),
		DryRun:    jnl.DryRun(),
		Succeeded: counts.Succeeded,
		Skipped:   counts.Skipped,
		Failed:    counts.Failed(),
	}
	for _, result := range jnl.Results() {
		output.Results = append(output.Results, RunStepResult{
			StepID:  result.StepID,
			Outcome: result.Outcome.Kind.String(),
			Detail:  result.Outcome.Detail,
		})
	}
	return output
}
