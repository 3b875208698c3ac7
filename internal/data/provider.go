package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/data/repos"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
	"github.com/adi-verma/quantscanner/pkg/redis"
)

const (
	// BenchmarkTicker is the broad-market index the relative-strength
	// gate measures against (Nifty 500)
	BenchmarkTicker = "^CRSLDX"

	// historySessions covers the 52-week RS baseline plus smoothing,
	// with room for the 200-session MA slope check
	historySessions = 420

	// nifty500File is the index constituent CSV for the default scope
	nifty500File = "ind_nifty500list.csv"

	// marketOpen in minutes from midnight IST (9:15)
	marketOpenMinute = 9*60 + 15
)

type instrumentSource interface {
	ListActive(ctx context.Context, minMarketCapCr float64) ([]repos.InstrumentRow, error)
}

type priceSource interface {
	GetSeries(ctx context.Context, ticker string, sessions int) ([]contracts.Candle, error)
}

type fundamentalsSource interface {
	GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error)
	GetInstitutional(ctx context.Context, ticker string) (*contracts.Institutional, error)
}

type constituentSource interface {
	FetchIndexConstituents(ctx context.Context, indexFile string) ([]string, error)
}

// Provider assembles the immutable per-scan batch from the persisted
// market data. It implements contracts.BatchProvider and owns all the
// I/O the pipeline is not allowed to do.
type Provider struct {
	instruments  instrumentSource
	prices       priceSource
	fundamentals fundamentalsSource
	constituents constituentSource
	cache        *redis.Cache

	cfg      config.NSEConfig
	workers  int
	timezone *time.Location
	logger   *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewProvider creates a batch provider
func NewProvider(
	instruments *repos.InstrumentRepository,
	prices *repos.PriceRepository,
	fundamentals *repos.FundamentalsRepository,
	constituents constituentSource,
	cache *redis.Cache,
	cfg config.NSEConfig,
	workers int,
	timezone *time.Location,
	log *logger.Logger,
) *Provider {
	return &Provider{
		instruments:  instruments,
		prices:       prices,
		fundamentals: fundamentals,
		constituents: constituents,
		cache:        cache,
		cfg:          cfg,
		workers:      workers,
		timezone:     timezone,
		logger:       log.WithField("component", "provider"),
		now:          time.Now,
	}
}

// LoadBatch builds the scan snapshot for one date. The default scope is
// the Nifty 500 constituents; fullUniverse widens it to every active
// listing above the market-cap floor.
func (p *Provider) LoadBatch(ctx context.Context, date time.Time, fullUniverse bool) (*contracts.Batch, error) {
	rows, err := p.instruments.ListActive(ctx, MinMarketCapCr)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}

	if !fullUniverse {
		rows, err = p.filterToIndex(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("filter to index constituents: %w", err)
		}
	}

	benchmark, err := p.prices.GetSeries(ctx, BenchmarkTicker, historySessions)
	if err != nil {
		// Gate 3 degrades RS to a soft fail when the benchmark is absent
		p.logger.WithError(err).Warn("Benchmark series unavailable")
		benchmark = nil
	}

	batch := &contracts.Batch{
		Date:                  date,
		Instruments:           p.loadInstruments(ctx, rows),
		Benchmark:             benchmark,
		ElapsedSessionMinutes: p.elapsedSessionMinutes(),
	}

	p.logger.WithFields(map[string]interface{}{
		"date":          date.Format("2006-01-02"),
		"full_universe": fullUniverse,
		"instruments":   batch.Count(),
	}).Info("Batch loaded")

	return batch, nil
}

// filterToIndex narrows the universe to index constituents, with the
// membership list cached for the day
func (p *Provider) filterToIndex(ctx context.Context, rows []repos.InstrumentRow) ([]repos.InstrumentRow, error) {
	var tickers []string
	key := redis.UniverseKey(p.now().Format("2006-01-02"))
	err := p.cache.GetOrSet(ctx, key, &tickers, p.cfg.CacheTTL.Universe, func() (interface{}, error) {
		return p.constituents.FetchIndexConstituents(ctx, nifty500File)
	})
	if err != nil {
		return nil, err
	}

	member := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		member[t] = true
	}

	filtered := make([]repos.InstrumentRow, 0, len(tickers))
	for _, row := range rows {
		if member[row.Ticker] {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// loadInstruments fetches series and snapshots for every row over a
// bounded worker pool. Instruments without any price history are dropped
// here; everything else enters the pipeline and lets the gates decide.
func (p *Provider) loadInstruments(ctx context.Context, rows []repos.InstrumentRow) map[string]*contracts.Instrument {
	workers := p.workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	instruments := make(map[string]*contracts.Instrument, len(rows))

	rowCh := make(chan repos.InstrumentRow, len(rows))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowCh {
				select {
				case <-ctx.Done():
					return
				default:
				}

				in, err := p.loadInstrument(ctx, row)
				if err != nil {
					p.logger.WithError(err).WithField("ticker", row.Ticker).Warn("Skipping instrument")
					continue
				}
				mu.Lock()
				instruments[in.Ticker] = in
				mu.Unlock()
			}
		}()
	}

	for _, row := range rows {
		rowCh <- row
	}
	close(rowCh)
	wg.Wait()

	return instruments
}

func (p *Provider) loadInstrument(ctx context.Context, row repos.InstrumentRow) (*contracts.Instrument, error) {
	series, err := p.prices.GetSeries(ctx, row.Ticker, historySessions)
	if err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no price history")
	}

	fundamentals, err := p.fundamentals.GetFundamentals(ctx, row.Ticker)
	if err != nil {
		return nil, fmt.Errorf("fundamentals: %w", err)
	}
	institutional, err := p.fundamentals.GetInstitutional(ctx, row.Ticker)
	if err != nil {
		return nil, fmt.Errorf("institutional: %w", err)
	}

	return &contracts.Instrument{
		Ticker:        row.Ticker,
		Name:          row.Name,
		Sector:        row.Sector,
		CapTier:       row.CapTier.Normalize(),
		Series:        series,
		Fundamentals:  fundamentals,
		Institutional: institutional,
	}, nil
}

// elapsedSessionMinutes returns how much of the 9:15-15:30 IST session
// has passed at load time, clamped to the session bounds. After the
// close (the normal end-of-day scan) this is the full session.
func (p *Provider) elapsedSessionMinutes() float64 {
	now := p.now().In(p.timezone)
	minuteOfDay := now.Hour()*60 + now.Minute()

	elapsed := float64(minuteOfDay - marketOpenMinute)
	if elapsed < 0 {
		return 0
	}
	const sessionMinutes = 375
	if elapsed > sessionMinutes {
		return sessionMinutes
	}
	return elapsed
}
