package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
	"github.com/adi-verma/quantscanner/pkg/redis"
)

// maxStaleDays is how old the newest stored session may be before the
// price table counts as stale. Five calendar days absorbs a weekend plus
// an exchange holiday.
const maxStaleDays = 5

type dbPinger interface {
	Ping(ctx context.Context) error
}

type freshnessSource interface {
	LatestTradeDate(ctx context.Context, ticker string) (string, error)
}

type prober interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Checker runs the pre-scan health check: database, Redis, exchange
// connectivity and price-table freshness. The scheduler runs it shortly
// before the end-of-day scan so a broken feed is caught while there is
// still time to intervene.
type Checker struct {
	db         dbPinger
	redis      *redis.Client
	prices     freshnessSource
	httpClient prober

	cfg    config.NSEConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewChecker creates a health checker
func NewChecker(db dbPinger, redisClient *redis.Client, prices freshnessSource, httpClient prober, cfg config.NSEConfig, log *logger.Logger) *Checker {
	return &Checker{
		db:         db,
		redis:      redisClient,
		prices:     prices,
		httpClient: httpClient,
		cfg:        cfg,
		logger:     log.WithField("component", "health"),
		now:        time.Now,
	}
}

// Check is one probe outcome
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Report is the aggregate health check result
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Healthy   bool      `json:"healthy"`
	Checks    []Check   `json:"checks"`
}

// Run executes every probe and aggregates the results. Disabled Redis is
// reported but does not fail the check: the scanner runs without it.
func (c *Checker) Run(ctx context.Context) *Report {
	report := &Report{
		Timestamp: c.now(),
		Healthy:   true,
	}

	checks := []func(ctx context.Context) Check{
		c.checkDatabase,
		c.checkRedis,
		c.checkConnectivity,
		c.checkFreshness,
	}
	for _, probe := range checks {
		check := probe(ctx)
		report.Checks = append(report.Checks, check)
		if !check.OK {
			report.Healthy = false
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"healthy": report.Healthy,
		"checks":  len(report.Checks),
	}).Info("Health check finished")
	return report
}

func (c *Checker) checkDatabase(ctx context.Context) Check {
	if err := c.db.Ping(ctx); err != nil {
		return Check{Name: "database", OK: false, Detail: err.Error()}
	}
	return Check{Name: "database", OK: true}
}

func (c *Checker) checkRedis(ctx context.Context) Check {
	if !c.redis.Enabled() {
		return Check{Name: "redis", OK: true, Detail: "disabled"}
	}
	if err := c.redis.Redis().Ping(ctx).Err(); err != nil {
		return Check{Name: "redis", OK: false, Detail: err.Error()}
	}
	return Check{Name: "redis", OK: true}
}

func (c *Checker) checkConnectivity(ctx context.Context) Check {
	resp, err := c.httpClient.Get(ctx, c.cfg.ConnectivityURL)
	if err != nil {
		return Check{Name: "connectivity", OK: false, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Check{Name: "connectivity", OK: false, Detail: fmt.Sprintf("status %d from %s", resp.StatusCode, c.cfg.ConnectivityURL)}
	}
	return Check{Name: "connectivity", OK: true}
}

func (c *Checker) checkFreshness(ctx context.Context) Check {
	latest, err := c.prices.LatestTradeDate(ctx, c.cfg.TestTicker)
	if err != nil {
		return Check{Name: "data_freshness", OK: false, Detail: err.Error()}
	}

	date, err := time.Parse("2006-01-02", latest)
	if err != nil {
		return Check{Name: "data_freshness", OK: false, Detail: fmt.Sprintf("no price history for %s", c.cfg.TestTicker)}
	}

	age := int(c.now().Sub(date).Hours() / 24)
	if age > maxStaleDays {
		return Check{
			Name:   "data_freshness",
			OK:     false,
			Detail: fmt.Sprintf("%s last bar is %d days old (%s)", c.cfg.TestTicker, age, latest),
		}
	}
	return Check{Name: "data_freshness", OK: true, Detail: fmt.Sprintf("latest bar %s", latest)}
}
