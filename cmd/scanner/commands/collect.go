package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect [universe|profiles|prices|all]",
	Short: "Run a data collection pass",
	Long: `Runs one ingestion pass outside the schedule.

  universe  - refresh the NSE/BSE listing master
  profiles  - scrape sector and market cap, classify cap tiers
  prices    - fetch daily OHLCV history for every active instrument
  all       - everything, in that order

Example:
  go run ./cmd/scanner collect all
  go run ./cmd/scanner collect prices`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"universe", "profiles", "prices", "all"},
	RunE:      runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	kind := args[0]

	if kind == "universe" || kind == "all" {
		count, err := app.collector.RefreshUniverse(ctx)
		if err != nil {
			return fmt.Errorf("refresh universe: %w", err)
		}
		fmt.Printf("Universe refreshed: %d listings\n", count)
	}

	if kind == "profiles" || kind == "all" {
		summary, err := app.collector.EnrichProfiles(ctx)
		if err != nil {
			return fmt.Errorf("enrich profiles: %w", err)
		}
		fmt.Printf("Profiles enriched: %d updated, %d failed of %d\n",
			summary.Saved, summary.Failed, summary.Tickers)
	}

	if kind == "prices" || kind == "all" {
		summary, err := app.collector.CollectPrices(ctx)
		if err != nil {
			return fmt.Errorf("collect prices: %w", err)
		}
		fmt.Printf("Prices collected: %d saved, %d failed of %d\n",
			summary.Saved, summary.Failed, summary.Tickers)
	}

	return nil
}
