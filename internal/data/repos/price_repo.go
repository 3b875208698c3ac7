package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// PriceRepository persists daily OHLCV history. The price collection job
// writes it; the batch provider reads trailing windows from it.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// SaveBars upserts daily bars for one ticker in a single batch
func (r *PriceRepository) SaveBars(ctx context.Context, ticker string, bars []contracts.Candle) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(`
			INSERT INTO scanner.daily_prices (ticker, trade_date, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (ticker, trade_date) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume
		`, ticker, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert bar for %s: %w", ticker, err)
		}
	}

	return nil
}

// GetSeries returns the most recent sessions for a ticker in
// chronological order
func (r *PriceRepository) GetSeries(ctx context.Context, ticker string, sessions int) ([]contracts.Candle, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT trade_date, open, high, low, close, volume
		FROM (
			SELECT trade_date, open, high, low, close, volume
			FROM scanner.daily_prices
			WHERE ticker = $1
			ORDER BY trade_date DESC
			LIMIT $2
		) recent
		ORDER BY trade_date ASC
	`, ticker, sessions)
	if err != nil {
		return nil, fmt.Errorf("query series for %s: %w", ticker, err)
	}
	defer rows.Close()

	var series []contracts.Candle
	for rows.Next() {
		var c contracts.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan bar for %s: %w", ticker, err)
		}
		series = append(series, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars for %s: %w", ticker, err)
	}

	return series, nil
}

// LatestTradeDate returns the most recent session date stored for a
// ticker, used by the health check to verify data freshness
func (r *PriceRepository) LatestTradeDate(ctx context.Context, ticker string) (string, error) {
	var date string
	err := r.pool.QueryRow(ctx, `
		SELECT to_char(MAX(trade_date), 'YYYY-MM-DD')
		FROM scanner.daily_prices
		WHERE ticker = $1
	`, ticker).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("latest trade date for %s: %w", ticker, err)
	}
	return date, nil
}
