package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/pipeline"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// ScanJob runs the daily screen: load the batch, run the gate pipeline,
// persist the report
type ScanJob struct {
	provider contracts.BatchProvider
	scanner  *pipeline.Scanner
	audit    contracts.AuditWriter
	schedule string
	logger   *logger.Logger
}

// NewScanJob creates the daily scan job
func NewScanJob(provider contracts.BatchProvider, scanner *pipeline.Scanner, audit contracts.AuditWriter, schedule string, log *logger.Logger) *ScanJob {
	return &ScanJob{
		provider: provider,
		scanner:  scanner,
		audit:    audit,
		schedule: schedule,
		logger:   log.WithField("job", "daily_scan"),
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run executes one full scan over the default (index) universe
func (j *ScanJob) Run(ctx context.Context) error {
	batch, err := j.provider.LoadBatch(ctx, time.Now(), false)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	report, err := j.scanner.Scan(ctx, batch, pipeline.GenerateSessionID(), nil)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if err := j.audit.WriteScan(ctx, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"session_id": report.SessionID,
		"scanned":    report.TotalScanned,
		"buys":       report.BuyCount(),
		"watchlist":  len(report.Watchlist()),
	}).Info("Daily scan finished")
	return nil
}
