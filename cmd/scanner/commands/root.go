package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "QuantScanner - end-of-day swing screener for NSE/BSE equities",
	Long: `QuantScanner Unified CLI

Five-gate screening pipeline over the Indian equity universe:
spread quality, fundamentals, institutional sponsorship, trend
confirmation and execution timing. Every decision lands in the
rationale trail.

Usage:
  go run ./cmd/scanner [command]

Examples:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --full-universe --dry-run
  go run ./cmd/scanner serve
  go run ./cmd/scanner collect prices
  go run ./cmd/scanner watchlist`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
