package jobs

import (
	"context"
	"fmt"

	"github.com/adi-verma/quantscanner/internal/data"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// IngestJob collects daily prices ahead of the scan window so the
// pipeline reads today's bar, not yesterday's
type IngestJob struct {
	collector *data.Collector
	schedule  string
	logger    *logger.Logger
}

// NewIngestJob creates the daily price collection job
func NewIngestJob(collector *data.Collector, schedule string, log *logger.Logger) *IngestJob {
	return &IngestJob{
		collector: collector,
		schedule:  schedule,
		logger:    log.WithField("job", "price_ingest"),
	}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return "price_ingest"
}

// Schedule returns the cron schedule
func (j *IngestJob) Schedule() string {
	return j.schedule
}

// Run collects prices for every active instrument. Partial failures are
// tolerated; a fully failed pass is not.
func (j *IngestJob) Run(ctx context.Context) error {
	summary, err := j.collector.CollectPrices(ctx)
	if err != nil {
		return fmt.Errorf("collect prices: %w", err)
	}
	if summary.Tickers > 0 && summary.Saved == 0 {
		return fmt.Errorf("collect prices: all %d tickers failed", summary.Tickers)
	}
	return nil
}

// UniverseJob refreshes the listed-equity master and re-scrapes the
// slow-moving profile metadata (sector, market cap). Weekly is enough:
// listings and cap tiers do not move daily.
type UniverseJob struct {
	collector *data.Collector
	schedule  string
	logger    *logger.Logger
}

// NewUniverseJob creates the weekly universe refresh job
func NewUniverseJob(collector *data.Collector, schedule string, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		collector: collector,
		schedule:  schedule,
		logger:    log.WithField("job", "universe_refresh"),
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule
func (j *UniverseJob) Schedule() string {
	return j.schedule
}

// Run refreshes listings then enriches profiles
func (j *UniverseJob) Run(ctx context.Context) error {
	count, err := j.collector.RefreshUniverse(ctx)
	if err != nil {
		return fmt.Errorf("refresh universe: %w", err)
	}
	j.logger.WithField("listings", count).Info("Universe refreshed")

	if _, err := j.collector.EnrichProfiles(ctx); err != nil {
		return fmt.Errorf("enrich profiles: %w", err)
	}
	return nil
}
