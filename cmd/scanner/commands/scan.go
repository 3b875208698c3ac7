package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan now",
	Long: `Runs the five-gate pipeline once, outside the schedule.

The default universe is the Nifty 500 constituents with the market-cap
floor applied; --full-universe widens it to every active listing.
--dry-run prints the report without persisting it.

Example:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --full-universe --dry-run`,
	RunE: runScan,
}

var (
	scanFullUniverse bool
	scanDryRun       bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanFullUniverse, "full-universe", false, "scan every active listing, not just index constituents")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "do not persist the scan report")
}

func runScan(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	sessionID := pipeline.GenerateSessionID()
	fmt.Printf("=== QuantScanner %s ===\n", sessionID)

	batch, err := app.provider.LoadBatch(ctx, time.Now(), scanFullUniverse)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	fmt.Printf("Loaded %d instruments\n", batch.Count())

	progress := func(message string, pct int) {
		fmt.Printf("  [%3d%%] %s\n", pct, message)
	}

	report, err := app.scanner.Scan(ctx, batch, sessionID, progress)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	printReport(report)

	if scanDryRun {
		fmt.Println("\nDry run, report not persisted")
		return nil
	}
	if err := app.writer.WriteScan(context.WithoutCancel(ctx), report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	fmt.Println("\nReport persisted")
	return nil
}

func printReport(report *contracts.ScanReport) {
	fmt.Printf("\nScanned %d instruments\n", report.TotalScanned)
	for _, gate := range contracts.GateNames() {
		if survivors, ok := report.StageCounts[gate]; ok {
			fmt.Printf("  %-22s %d survivors\n", gate, survivors)
		}
	}

	if len(report.Candidates) == 0 {
		fmt.Println("\nNo candidates today")
		return
	}

	fmt.Printf("\n%-14s %-16s %-10s %8s %10s %10s %10s\n",
		"TICKER", "STATUS", "TIER", "ADX", "ENTRY", "STOP", "TARGET")
	for _, c := range report.Candidates {
		fmt.Printf("%-14s %-16s %-10s %8.1f %10.2f %10.2f %10.2f\n",
			c.Ticker, c.Status, c.CapTier, c.ADX, c.Trade.Entry, c.Trade.Stop, c.Trade.Target)
	}
}
