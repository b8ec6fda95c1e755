package main

import (
	"errors"
	"os"

	"github.com/Sothcheat/provision/internal/domain/catalog"
	"github.com/Sothcheat/provision/internal/domain/engine"
)

// Exit codes; a catalog rejected before execution is distinguished from
// a run that started and aborted.
const (
	exitOK      = 0
	exitAborted = 1
	exitCatalog = 2
)

func main() {
	if err := Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
	os.Exit(exitOK)
}

// exitCodeFor maps the error taxonomy to process exit codes.
func exitCodeFor(err error) int {
	var catErr *catalog.CatalogError
	if errors.As(err, &catErr) {
		return exitCatalog
	}
	if errors.Is(err, engine.ErrAborted) {
		return exitAborted
	}
	return exitAborted
}
