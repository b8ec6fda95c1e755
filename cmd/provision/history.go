package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/app"
	"github.com/Sothcheat/provision/internal/domain/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded provisioning runs",
	Long: `History lists persisted run journals newest first: run id, start
time, final status, and outcome counts. Use 'history show <runId>' to
inspect one run's step records.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <runId>",
	Short: "Show the step records of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyJSON bool

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Emit JSON instead of the table")
}

func runHistory(_ *cobra.Command, _ []string) error {
	provision := app.New(os.Stdout).WithLogger(newLogger())

	summaries, err := provision.History()
	if err != nil {
		return err
	}

	if historyJSON {
		return printHistoryJSON(summaries)
	}

	provision.PrintHistory(summaries)
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	provision := app.New(os.Stdout).WithLogger(newLogger())

	jnl, err := provision.ShowRun(args[0])
	if err != nil {
		if app.IsNotFound(err) {
			return fmt.Errorf("run %q not found", args[0])
		}
		return err
	}

	if historyJSON {
		return printRunJSON(jnl)
	}

	provision.PrintSummary(jnl)
	return nil
}

// historyEntry is the JSON shape of one run in the listing.
type historyEntry struct {
	RunID     string `json:"run_id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Status    string `json:"status"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func printHistoryJSON(summaries []journal.Summary) error {
	entries := make([]historyEntry, 0, len(summaries))
	for _, s := range summaries {
		entry := historyEntry{
			RunID:     s.RunID.String(),
			StartedAt: s.StartedAt.Format(time.RFC3339),
			Status:    string(s.Status),
			Succeeded: s.Counts.Succeeded,
			Skipped:   s.Counts.Skipped,
			Failed:    s.Counts.Failed(),
		}
		if !s.EndedAt.IsZero() {
			entry.EndedAt = s.EndedAt.Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// runRecord is the JSON shape of one step record.
type runRecord struct {
	StepID    string `json:"step_id"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
}

func printRunJSON(jnl *journal.Journal) error {
	records := make([]runRecord, 0)
	for _, result := range jnl.Results() {
		records = append(records, runRecord{
			StepID:    result.StepID,
			Outcome:   result.Outcome.Kind.String(),
			Detail:    result.Outcome.Detail,
			StartedAt: result.StartedAt.Format(time.RFC3339),
			EndedAt:   result.EndedAt.Format(time.RFC3339),
		})
	}

	payload := struct {
		RunID   string      `json:"run_id"`
		Status  string      `json:"status"`
		Results []runRecord `json:"results"`
	}{
		RunID:   jnl.RunID().String(),
		Status:  string(jnl.Status()),
		Results: records,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
