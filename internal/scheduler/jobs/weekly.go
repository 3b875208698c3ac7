package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/adi-verma/quantscanner/internal/audit"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// WeeklyJob builds the Friday watchlist digest: coiling springs that kept
// recurring through the week
type WeeklyJob struct {
	analyzer *audit.Analyzer
	schedule string
	logger   *logger.Logger
}

// NewWeeklyJob creates the weekly digest job
func NewWeeklyJob(analyzer *audit.Analyzer, schedule string, log *logger.Logger) *WeeklyJob {
	return &WeeklyJob{
		analyzer: analyzer,
		schedule: schedule,
		logger:   log.WithField("job", "weekly_digest"),
	}
}

// Name returns the job name
func (j *WeeklyJob) Name() string {
	return "weekly_digest"
}

// Schedule returns the cron schedule
func (j *WeeklyJob) Schedule() string {
	return j.schedule
}

// Run builds and logs the digest
func (j *WeeklyJob) Run(ctx context.Context) error {
	entries, err := j.analyzer.WeeklyWatchlist(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("build weekly watchlist: %w", err)
	}

	for _, entry := range entries {
		j.logger.WithFields(map[string]interface{}{
			"ticker":      entry.Ticker,
			"sector":      entry.Sector,
			"appearances": entry.Appearances,
			"last_seen":   entry.LastSeen.Format("2006-01-02"),
		}).Info("Watchlist entry")
	}

	j.logger.WithField("entries", len(entries)).Info("Weekly digest finished")
	return nil
}
