package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/adapters/logging"
	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/ports"
)

var (
	// Global flags
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "provision",
	Short: "A journal-backed post-install provisioning engine",
	Long: `Provision executes an ordered catalog of named steps against a machine,
recording every outcome in a durable run journal.

Steps declare their own failure policy (fatal or recoverable), the
identity they run as, and an optional precondition that lets an already
applied step skip itself. A crashed or aborted run resumes from its
journal with --resume.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON lines")

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the operator-visible log stream per the global flags.
func newLogger() ports.Logger {
	level := ports.LevelInfo
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(
		logging.WithLevel(level),
		logging.WithJSONFormat(jsonLogs),
	)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var catErr *catalog.CatalogError
	if errors.As(err, &catErr) {
		msg := catErr.Message
		if catErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", catErr.Context)
		}
		if catErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", catErr.Suggestion)
		}
		if verbose && catErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", catErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
