package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/data/exchange"
	"github.com/adi-verma/quantscanner/internal/data/repos"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// collectLookbackDays is the calendar window fetched per ticker, sized so
// the trailing historySessions trading days are always covered
const collectLookbackDays = 630

type listingSource interface {
	FetchNSEUniverse(ctx context.Context) ([]exchange.Listing, error)
	FetchBSEUniverse(ctx context.Context) ([]exchange.Listing, error)
}

type barSource interface {
	FetchDailyPrices(ctx context.Context, ticker string, from, to time.Time) ([]exchange.PriceBar, error)
}

type profileSource interface {
	FetchProfile(ctx context.Context, ticker string) (*exchange.Profile, error)
}

type listingStore interface {
	instrumentSource
	UpsertListings(ctx context.Context, listings []exchange.Listing) error
	UpdateProfile(ctx context.Context, ticker, sector string, marketCapCr float64, tier contracts.CapTier) error
}

type barStore interface {
	SaveBars(ctx context.Context, ticker string, bars []contracts.Candle) error
}

// Collector runs the scheduled ingestion jobs: universe refresh, daily
// price collection and profile enrichment. It is the only writer of the
// market-data tables.
type Collector struct {
	listings listingSource
	bars     barSource
	profiles profileSource

	instruments listingStore
	prices      barStore

	workers int
	logger  *logger.Logger
	now     func() time.Time
}

// NewCollector creates a collector over the exchange client and the
// repositories
func NewCollector(client *exchange.Client, instruments *repos.InstrumentRepository, prices *repos.PriceRepository, workers int, log *logger.Logger) *Collector {
	return &Collector{
		listings:    client,
		bars:        client,
		profiles:    client,
		instruments: instruments,
		prices:      prices,
		workers:     workers,
		logger:      log.WithField("component", "collector"),
		now:         time.Now,
	}
}

// RefreshUniverse pulls the NSE and BSE equity masters and upserts them
// into the instrument table. BSE is best-effort: its API flakes often and
// the NSE master alone is a usable universe.
func (c *Collector) RefreshUniverse(ctx context.Context) (int, error) {
	nse, err := c.listings.FetchNSEUniverse(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh universe: %w", err)
	}

	listings := nse
	bse, err := c.listings.FetchBSEUniverse(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("BSE universe fetch failed, continuing with NSE only")
	} else {
		listings = append(listings, bse...)
	}

	if err := c.instruments.UpsertListings(ctx, listings); err != nil {
		return 0, fmt.Errorf("refresh universe: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"nse":   len(nse),
		"total": len(listings),
	}).Info("Universe refreshed")
	return len(listings), nil
}

// CollectSummary reports one ingestion pass
type CollectSummary struct {
	Tickers int
	Saved   int
	Failed  int
}

// CollectPrices fetches daily history for every active instrument plus
// the benchmark index, over a bounded worker pool. Per-ticker failures
// are logged and counted, not fatal: a partially fresh price table still
// yields a scan.
func (c *Collector) CollectPrices(ctx context.Context) (CollectSummary, error) {
	rows, err := c.instruments.ListActive(ctx, MinMarketCapCr)
	if err != nil {
		return CollectSummary{}, fmt.Errorf("collect prices: %w", err)
	}

	tickers := make([]string, 0, len(rows)+1)
	tickers = append(tickers, BenchmarkTicker)
	for _, row := range rows {
		tickers = append(tickers, row.Ticker)
	}

	to := c.now()
	from := to.AddDate(0, 0, -collectLookbackDays)

	summary := CollectSummary{Tickers: len(tickers)}
	var mu sync.Mutex

	c.eachTicker(ctx, tickers, func(ticker string) {
		bars, err := c.bars.FetchDailyPrices(ctx, ticker, from, to)
		if err == nil {
			err = c.prices.SaveBars(ctx, ticker, toCandles(bars))
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			c.logger.WithError(err).WithField("ticker", ticker).Warn("Price collection failed")
			return
		}
		summary.Saved++
	})

	c.logger.WithFields(map[string]interface{}{
		"tickers": summary.Tickers,
		"saved":   summary.Saved,
		"failed":  summary.Failed,
	}).Info("Price collection finished")
	return summary, nil
}

// EnrichProfiles scrapes sector and market cap for every active
// instrument and stores the derived cap tier. Instruments whose quote
// page discloses nothing are left untouched; the provider already treats
// missing metadata conservatively.
func (c *Collector) EnrichProfiles(ctx context.Context) (CollectSummary, error) {
	rows, err := c.instruments.ListActive(ctx, 0)
	if err != nil {
		return CollectSummary{}, fmt.Errorf("enrich profiles: %w", err)
	}

	tickers := make([]string, 0, len(rows))
	for _, row := range rows {
		tickers = append(tickers, row.Ticker)
	}

	summary := CollectSummary{Tickers: len(tickers)}
	var mu sync.Mutex

	c.eachTicker(ctx, tickers, func(ticker string) {
		profile, err := c.profiles.FetchProfile(ctx, ticker)
		if err == nil && profile.Sector == "" && profile.MarketCapCr == 0 {
			return
		}
		if err == nil {
			err = c.instruments.UpdateProfile(ctx, ticker, profile.Sector, profile.MarketCapCr, TierFor(profile.MarketCapCr))
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			c.logger.WithError(err).WithField("ticker", ticker).Warn("Profile enrichment failed")
			return
		}
		summary.Saved++
	})

	c.logger.WithFields(map[string]interface{}{
		"tickers": summary.Tickers,
		"saved":   summary.Saved,
		"failed":  summary.Failed,
	}).Info("Profile enrichment finished")
	return summary, nil
}

// eachTicker fans the work over the collector's worker pool
func (c *Collector) eachTicker(ctx context.Context, tickers []string, fn func(ticker string)) {
	workers := c.workers
	if workers < 1 {
		workers = 1
	}

	ch := make(chan string, len(tickers))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range ch {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fn(ticker)
			}
		}()
	}

	for _, ticker := range tickers {
		ch <- ticker
	}
	close(ch)
	wg.Wait()
}

func toCandles(bars []exchange.PriceBar) []contracts.Candle {
	candles := make([]contracts.Candle, len(bars))
	for i, bar := range bars {
		candles[i] = contracts.Candle{
			Date:   bar.Date,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return candles
}
