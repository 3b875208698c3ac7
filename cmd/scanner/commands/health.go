package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run the pre-scan health check once",
	Long: `Runs every probe (database, Redis, exchange connectivity, price
freshness) and prints the results. Exits non-zero when unhealthy, so it
works as a cron pre-flight or container readiness command.

Example:
  go run ./cmd/scanner health`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	report := app.checker.Run(cmd.Context())

	for _, check := range report.Checks {
		mark := "ok"
		if !check.OK {
			mark = "FAIL"
		}
		if check.Detail != "" {
			fmt.Printf("  %-16s %-4s  %s\n", check.Name, mark, check.Detail)
		} else {
			fmt.Printf("  %-16s %s\n", check.Name, mark)
		}
	}

	if !report.Healthy {
		return fmt.Errorf("system unhealthy")
	}
	fmt.Println("\nAll checks passed")
	return nil
}
