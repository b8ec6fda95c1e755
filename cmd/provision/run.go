package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/app"
	"github.com/Sothcheat/provision/internal/domain/engine"
	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the step catalog against this machine",
	Long: `Run executes every catalog step in declared order, recording each
outcome in the run journal.

A fatal step failure aborts the run; recoverable failures are logged and
execution continues, so a best-effort run installs as much as possible.
Re-running after remediation with --resume skips the steps the prior run
already completed.

A real run requires elevated privilege; --dry-run works unprivileged and
performs no side effects.`,
	RunE: runRun,
}

var (
	runCatalogPath string
	runDryRun      bool
	runResume      string
	runTimeout     time.Duration
	runInteractive bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runCatalogPath, "catalog", "c", "provision.yaml", "Path to the step catalog")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Evaluate preconditions and log intended actions without side effects")
	runCmd.Flags().StringVar(&runResume, "resume", "", "Resume from a prior run's journal, skipping completed steps")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-step timeout (a step's own timeout takes precedence)")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Render interactive progress instead of log lines")
}

func runRun(_ *cobra.Command, _ []string) error {
	// Operator interrupt is honored at step boundaries: the engine
	// finishes the current step, records it, and finalizes the journal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provision := app.New(os.Stdout).WithLogger(newLogger())

	opts := app.RunOptions{
		DryRun:      runDryRun,
		Resume:      runResume,
		StepTimeout: runTimeout,
	}

	var (
		jnl    *journal.Journal
		runErr error
	)
	if runInteractive {
		jnl, runErr = runWithProgress(ctx, provision, opts)
	} else {
		jnl, runErr = provision.Run(ctx, runCatalogPath, opts)
	}

	if jnl != nil {
		provision.PrintSummary(jnl)
	}

	// An aborted run keeps its typed error for the exit code; a run that
	// completed with only recoverable failures returns nil and exits zero.
	return runErr
}

// runWithProgress drives the run under a Bubble Tea progress view fed by
// engine events.
func runWithProgress(ctx context.Context, provision *app.Provision, opts app.RunOptions) (*journal.Journal, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewProgressModel().WithCancel(cancel)
	program := tea.NewProgram(model)

	opts.Events = func(event engine.Event) {
		program.Send(tui.EventMsg{Event: event})
	}

	type runResult struct {
		jnl *journal.Journal
		err error
	}
	done := make(chan runResult, 1)

	go func() {
		jnl, err := provision.Run(runCtx, runCatalogPath, opts)
		done <- runResult{jnl: jnl, err: err}
		// The run-finished event quits the model; errors before the
		// first event (catalog rejection) need an explicit quit.
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		result := <-done
		if result.err != nil {
			return result.jnl, result.err
		}
		return result.jnl, err
	}

	result := <-done
	return result.jnl, result.err
}
