package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Print the weekly coiling-spring watchlist",
	Long: `Prints the coiling springs that recurred across enough scans in the
trailing week. These are structurally sound bases waiting on momentum
confirmation, not buy signals.

Example:
  go run ./cmd/scanner watchlist`,
	RunE: runWatchlist,
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
}

func runWatchlist(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.analyzer.WeeklyWatchlist(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("build watchlist: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No recurring coiling springs this week")
		return nil
	}

	fmt.Printf("%-14s %-24s %12s %12s\n", "TICKER", "SECTOR", "APPEARANCES", "LAST SEEN")
	for _, entry := range entries {
		fmt.Printf("%-14s %-24s %12d %12s\n",
			entry.Ticker, entry.Sector, entry.Appearances, entry.LastSeen.Format("2006-01-02"))
	}
	return nil
}
