package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/app"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which steps would run without executing anything",
	Long: `Plan evaluates every step's precondition and prints the would-run /
would-skip decision. Nothing is executed and nothing is written; the
same decisions drive a subsequent run.`,
	RunE: runPlan,
}

var planCatalogPath string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planCatalogPath, "catalog", "c", "provision.yaml", "Path to the step catalog")
}

func runPlan(_ *cobra.Command, _ []string) error {
	provision := app.New(os.Stdout).WithLogger(newLogger())

	decisions, err := provision.Plan(context.Background(), planCatalogPath)
	if err != nil {
		return err
	}

	provision.PrintPlan(decisions)
	return nil
}
