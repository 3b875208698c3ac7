package commands

import (
	"fmt"
	"time"

	"github.com/adi-verma/quantscanner/internal/audit"
	"github.com/adi-verma/quantscanner/internal/data"
	"github.com/adi-verma/quantscanner/internal/data/exchange"
	"github.com/adi-verma/quantscanner/internal/data/repos"
	"github.com/adi-verma/quantscanner/internal/health"
	"github.com/adi-verma/quantscanner/internal/pipeline"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/database"
	"github.com/adi-verma/quantscanner/pkg/httputil"
	"github.com/adi-verma/quantscanner/pkg/logger"
	"github.com/adi-verma/quantscanner/pkg/redis"
)

// app holds the wired dependency graph shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	location *time.Location

	db    *database.DB
	redis *redis.Client

	instruments  *repos.InstrumentRepository
	prices       *repos.PriceRepository
	fundamentals *repos.FundamentalsRepository

	exchange  *exchange.Client
	provider  *data.Provider
	collector *data.Collector

	scanner   *pipeline.Scanner
	auditRepo *audit.Repository
	writer    *audit.Writer
	analyzer  *audit.Analyzer
	checker   *health.Checker
}

// newApp loads config and wires every component
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "quantscanner")

	instruments := repos.NewInstrumentRepository(db.Pool)
	prices := repos.NewPriceRepository(db.Pool)
	fundamentals := repos.NewFundamentalsRepository(db.Pool)

	exchangeClient := exchange.New(cfg.NSE, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		location: location,

		db:    db,
		redis: redisClient,

		instruments:  instruments,
		prices:       prices,
		fundamentals: fundamentals,

		exchange: exchangeClient,
		provider: data.NewProvider(
			instruments, prices, fundamentals, exchangeClient,
			cache, cfg.NSE, cfg.Schedule.ScanWorkers, location, log,
		),
		collector: data.NewCollector(exchangeClient, instruments, prices, cfg.Schedule.ScanWorkers, log),

		scanner: pipeline.New(cfg.Gates, cfg.Schedule.ScanWorkers, log),
	}

	a.auditRepo = audit.NewRepository(db.Pool)
	a.writer = audit.NewWriter(a.auditRepo, log)
	a.analyzer = audit.NewAnalyzer(a.auditRepo, log)
	a.checker = health.NewChecker(db, redisClient, prices, httputil.New(log), cfg.NSE, log)

	return a, nil
}

// Close releases all connections
func (a *app) Close() {
	a.redis.Close()
	a.db.Close()
}
