package app

import (
	"fmt"
	"time"

	"github.com/Sothcheat/provision/internal/domain/journal"
	"github.com/Sothcheat/provision/internal/tui"
)

// printf writes to the application's output stream.
func (p *Provision) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintPlan outputs the would-run / would-skip decision per step.
func (p *Provision) PrintPlan(decisions []PlanDecision) {
	styles := tui.DefaultStyles()

	p.printf("\n%s\n\n", styles.Title.Render("Provisioning Plan"))

	var wouldRun int
	for _, d := range decisions {
		if d.WouldRun {
			wouldRun++
			p.printf("  %s %s\n", styles.Success.Render("+"), styles.StepID.Render(d.StepID))
			p.printf("      %s\n", styles.Muted.Render(d.Action))
		} else {
			p.printf("  %s %s\n", styles.Muted.Render(tui.GlyphSkipped), styles.StepID.Render(d.StepID))
			p.printf("      %s\n", styles.Muted.Render("skip: "+d.Reason))
		}
	}

	p.printf("\nSteps: %d total, %d would run, %d would skip\n",
		len(decisions), wouldRun, len(decisions)-wouldRun)
	if wouldRun > 0 {
		p.printf("Run 'provision run' to execute.\n")
	}
}

// PrintSummary outputs the final per-step report of a run.
func (p *Provision) PrintSummary(j *journal.Journal) {
	styles := tui.DefaultStyles()

	title := "Run Summary"
	if j.DryRun() {
		title = "Run Summary (dry run)"
	}
	p.printf("\n%s\n", styles.Title.Render(title))
	p.printf("%s\n\n", styles.Muted.Render("run "+j.RunID().String()))

	for _, result := range j.Results() {
		glyph := styles.Success.Render(tui.GlyphSucceeded)
		detail := ""
		switch result.Outcome.Kind {
		case journal.OutcomeSkipped:
			glyph = styles.Muted.Render(tui.GlyphSkipped)
			detail = styles.Muted.Render(" (" + result.Outcome.Detail + ")")
		case journal.OutcomeFailedRecoverable:
			glyph = styles.Warning.Render(tui.GlyphFailed)
			detail = styles.Warning.Render(": " + result.ErrorDetail)
		case journal.OutcomeFailedFatal:
			glyph = styles.Error.Render(tui.GlyphFailed)
			detail = styles.Error.Render(": " + result.ErrorDetail)
		case journal.OutcomeSucceeded:
			if result.Outcome.Detail != "" {
				detail = styles.Muted.Render(" (" + result.Outcome.Detail + ")")
			}
		}

		p.printf("  %s %s%s %s\n",
			glyph,
			styles.StepID.Render(result.StepID),
			detail,
			styles.Muted.Render(result.Duration().Round(time.Millisecond).String()),
		)
	}

	counts := j.Count()
	p.printf("\n%d succeeded, %d skipped, %d failed",
		counts.Succeeded, counts.Skipped, counts.Failed())

	switch {
	case j.Status() == journal.StatusAborted:
		p.printf("  %s\n", styles.Error.Render("[aborted]"))
		p.printf("Re-run with --resume %s after remediation.\n", j.RunID())
	case counts.Recoverable > 0:
		p.printf("  %s\n", styles.Warning.Render("[completed with recoverable failures]"))
		p.printf("Re-run with --resume %s to retry the failed steps.\n", j.RunID())
	default:
		p.printf("\n")
	}
}

// PrintHistory outputs the persisted run listing.
func (p *Provision) PrintHistory(summaries []journal.Summary) {
	styles := tui.DefaultStyles()

	if len(summaries) == 0 {
		p.printf("No recorded runs.\n")
		return
	}

	p.printf("\n%s\n\n", styles.Title.Render("Run History"))
	for _, s := range summaries {
		statusStyle := styles.Success
		if s.Status == journal.StatusAborted {
			statusStyle = styles.Error
		} else if s.Status == journal.StatusRunning {
			// Still marked running on disk: the process crashed mid-run.
			statusStyle = styles.Warning
		}

		p.printf("  %s  %s  %s  %s\n",
			styles.StepID.Render(s.RunID.String()),
			s.StartedAt.Format(time.RFC3339),
			statusStyle.Render(string(s.Status)),
			styles.Muted.Render(fmt.Sprintf("%d ok / %d skip / %d fail",
				s.Counts.Succeeded, s.Counts.Skipped, s.Counts.Failed())),
		)
	}
}
