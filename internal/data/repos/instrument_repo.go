package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/data/exchange"
)

// InstrumentRepository persists the listed-equity master. The universe
// refresh job writes it; the batch provider reads it.
type InstrumentRepository struct {
	pool *pgxpool.Pool
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(pool *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{pool: pool}
}

// InstrumentRow is one persisted instrument with scan metadata
type InstrumentRow struct {
	Ticker      string
	Name        string
	Exchange    string
	Sector      string
	CapTier     contracts.CapTier
	MarketCapCr float64
}

// UpsertListings inserts or refreshes exchange listings in one batch
func (r *InstrumentRepository) UpsertListings(ctx context.Context, listings []exchange.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(`
			INSERT INTO scanner.instruments (ticker, name, exchange, series, isin, listed_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (ticker) DO UPDATE SET
				name = EXCLUDED.name,
				series = EXCLUDED.series,
				isin = EXCLUDED.isin,
				updated_at = NOW()
		`, l.Ticker, l.Name, l.Exchange, l.Series, l.ISIN, nullableTime(l.ListingDate))
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range listings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert listing: %w", err)
		}
	}

	return nil
}

// UpdateProfile stores the slow-moving scan metadata for one instrument
func (r *InstrumentRepository) UpdateProfile(ctx context.Context, ticker, sector string, marketCapCr float64, tier contracts.CapTier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scanner.instruments
		SET sector = $2, market_cap_cr = $3, cap_tier = $4, updated_at = NOW()
		WHERE ticker = $1
	`, ticker, sector, marketCapCr, string(tier))
	if err != nil {
		return fmt.Errorf("update profile for %s: %w", ticker, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile for %s: instrument not found", ticker)
	}
	return nil
}

// ListActive returns all instruments eligible for scanning: EQ series
// with a market cap at or above the floor
func (r *InstrumentRepository) ListActive(ctx context.Context, minMarketCapCr float64) ([]InstrumentRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker, name, exchange, COALESCE(sector, ''), COALESCE(cap_tier, ''), COALESCE(market_cap_cr, 0)
		FROM scanner.instruments
		WHERE series = 'EQ' AND COALESCE(market_cap_cr, 0) >= $1
		ORDER BY ticker
	`, minMarketCapCr)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []InstrumentRow
	for rows.Next() {
		var row InstrumentRow
		var tier string
		if err := rows.Scan(&row.Ticker, &row.Name, &row.Exchange, &row.Sector, &tier, &row.MarketCapCr); err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		row.CapTier = contracts.CapTier(tier)
		instruments = append(instruments, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}

	return instruments, nil
}

// Get returns one instrument row
func (r *InstrumentRepository) Get(ctx context.Context, ticker string) (*InstrumentRow, error) {
	var row InstrumentRow
	var tier string
	err := r.pool.QueryRow(ctx, `
		SELECT ticker, name, exchange, COALESCE(sector, ''), COALESCE(cap_tier, ''), COALESCE(market_cap_cr, 0)
		FROM scanner.instruments
		WHERE ticker = $1
	`, ticker).Scan(&row.Ticker, &row.Name, &row.Exchange, &row.Sector, &tier, &row.MarketCapCr)
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", ticker, err)
	}
	row.CapTier = contracts.CapTier(tier)
	return &row, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
