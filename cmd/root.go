// Package cmd implements the CLI commands for TablePipe using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tablepipe",
	Short: "TablePipe — normalize loosely structured data into tables",
	Long: `TablePipe ingests a remote URL or local payload (CSV, NDJSON, JSON,
RSS/XML, or raw HTML), normalizes it into a uniform table, and can
export the result, embed rows for similarity search, and propose
chart specs.

Usage:
  tablepipe ingest <url> [flags]
  tablepipe serve [flags]`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
