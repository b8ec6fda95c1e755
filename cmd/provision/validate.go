package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/app"
	"github.com/Sothcheat/provision/internal/domain/catalog"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog for structural errors without executing",
	Long: `Validate loads the catalog and reports every structural problem it
finds: duplicate step ids, unknown action or precondition types, and
malformed parameters. Exit code 2 signals an invalid catalog.`,
	RunE: runValidate,
}

var validateCatalogPath string

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateCatalogPath, "catalog", "c", "provision.yaml", "Path to the step catalog")
}

func runValidate(_ *cobra.Command, _ []string) error {
	provision := app.New(os.Stdout).WithLogger(newLogger())

	cat, errs := provision.Validate(validateCatalogPath)
	if len(errs) == 0 {
		fmt.Printf("Catalog OK: %d steps.\n", cat.Len())
		return nil
	}

	for _, err := range errs {
		var catErr *catalog.CatalogError
		if errors.As(err, &catErr) {
			fmt.Fprintln(os.Stderr, catErr.Format())
			continue
		}
		fmt.Fprintln(os.Stderr, err.Error())
	}

	return catalog.NewCatalogError(catalog.ErrCodeCatalogInvalid,
		fmt.Sprintf("catalog has %d invalid definitions", len(errs))).
		WithContext(validateCatalogPath)
}
