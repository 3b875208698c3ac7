package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adi-verma/quantscanner/internal/api"
	"github.com/adi-verma/quantscanner/internal/api/handlers"
	"github.com/adi-verma/quantscanner/internal/api/ws"
	"github.com/adi-verma/quantscanner/internal/scheduler"
	"github.com/adi-verma/quantscanner/internal/scheduler/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the scan scheduler",
	Long: `Runs the long-lived service: the REST API, the WebSocket progress
stream and the cron scheduler with the daily ingestion, health check,
scan and weekly digest jobs.

Endpoints:
  GET  /health               - full system health report
  POST /api/scan             - trigger a scan
  GET  /api/scan/latest      - most recent scan report
  GET  /api/scan/{session}   - scan report by session
  GET  /api/scan/attrition   - per-gate survivor averages
  GET  /api/watchlist/weekly - recurring coiling springs
  GET  /api/jobs             - scheduler statistics
  WS   /ws/progress          - scan progress stream

Example:
  go run ./cmd/scanner serve
  go run ./cmd/scanner serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "override the API port")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if servePort != "" {
		app.cfg.Port = servePort
	}

	// Scheduler with the market-time jobs
	sched := scheduler.New(app.log, app.location)
	for _, job := range []scheduler.Job{
		jobs.NewIngestJob(app.collector, app.cfg.Schedule.IngestCron, app.log),
		jobs.NewHealthJob(app.checker, app.cfg.Schedule.HealthCron, app.log),
		jobs.NewScanJob(app.provider, app.scanner, app.writer, app.cfg.Schedule.ScanCron, app.log),
		jobs.NewWeeklyJob(app.analyzer, app.cfg.Schedule.WeeklyCron, app.log),
		jobs.NewUniverseJob(app.collector, app.cfg.Schedule.UniverseCron, app.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}

	// HTTP surface
	hub := ws.NewHub(app.log)
	router := api.NewRouter(
		handlers.NewHealthHandler(app.checker, app.log),
		handlers.NewScanHandler(app.provider, app.scanner, app.writer, hub, app.log),
		handlers.NewReportHandler(app.auditRepo, app.log),
		handlers.NewWatchlistHandler(app.analyzer, app.log),
		handlers.NewJobsHandler(sched, app.log),
		hub,
		app.log,
	)
	server := api.New(app.cfg, app.log, router)

	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
