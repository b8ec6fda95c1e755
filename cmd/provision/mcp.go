package main

import (
	"context"
	"os"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/spf13/cobra"

	"github.com/Sothcheat/provision/internal/app"
	mcptools "github.com/Sothcheat/provision/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server exposing provisioning
operations to AI agents.

Available tools:
  - provision_plan      Show which steps would run
  - provision_run       Execute the catalog (requires confirm=true)
  - provision_validate  Validate the catalog
  - provision_history   List or inspect recorded runs

Examples:
  provision mcp                     # Start stdio MCP server
  provision mcp --http :8080        # Start HTTP MCP server
  provision mcp --catalog path.yaml # Use a specific catalog file`,
	RunE: runMCP,
}

var (
	mcpHTTP        string
	mcpCatalogPath string
)

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "Start HTTP server on address (e.g., :8080)")
	mcpCmd.Flags().StringVarP(&mcpCatalogPath, "catalog", "c", "provision.yaml", "Default catalog path")
}

func runMCP(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	provision := app.New(os.Stdout).WithLogger(newLogger())

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "provision",
		Version: version,
	})

	mcptools.RegisterAll(srv, provision, mcpCatalogPath, mcptools.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
	})

	if mcpHTTP != "" {
		return mcp.ServeHTTP(ctx, srv, mcpHTTP)
	}
	return mcp.ServeStdio(ctx, srv)
}
