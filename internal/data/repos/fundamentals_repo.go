package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// FundamentalsRepository persists accounting and shareholding snapshots.
// All value columns are nullable and scan into pointer fields, keeping
// the missing-disclosure semantics intact through the round trip.
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalsRepository creates a new fundamentals repository
func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

// SaveFundamentals upserts the accounting snapshot for one ticker
func (r *FundamentalsRepository) SaveFundamentals(ctx context.Context, ticker string, f *contracts.Fundamentals) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scanner.fundamentals (
			ticker,
			net_income, net_income_prev, cfo,
			total_assets, total_assets_prev,
			current_assets, current_assets_prev,
			current_liabilities, current_liabilities_prev,
			long_term_debt, long_term_debt_prev,
			shares_outstanding, shares_outstanding_prev,
			gross_margin_pct, gross_margin_pct_prev,
			revenue, revenue_prev,
			promoter_pledge_pct,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			net_income = EXCLUDED.net_income,
			net_income_prev = EXCLUDED.net_income_prev,
			cfo = EXCLUDED.cfo,
			total_assets = EXCLUDED.total_assets,
			total_assets_prev = EXCLUDED.total_assets_prev,
			current_assets = EXCLUDED.current_assets,
			current_assets_prev = EXCLUDED.current_assets_prev,
			current_liabilities = EXCLUDED.current_liabilities,
			current_liabilities_prev = EXCLUDED.current_liabilities_prev,
			long_term_debt = EXCLUDED.long_term_debt,
			long_term_debt_prev = EXCLUDED.long_term_debt_prev,
			shares_outstanding = EXCLUDED.shares_outstanding,
			shares_outstanding_prev = EXCLUDED.shares_outstanding_prev,
			gross_margin_pct = EXCLUDED.gross_margin_pct,
			gross_margin_pct_prev = EXCLUDED.gross_margin_pct_prev,
			revenue = EXCLUDED.revenue,
			revenue_prev = EXCLUDED.revenue_prev,
			promoter_pledge_pct = EXCLUDED.promoter_pledge_pct,
			updated_at = NOW()
	`,
		ticker,
		f.NetIncome, f.NetIncomePrev, f.CFO,
		f.TotalAssets, f.TotalAssetsPrev,
		f.CurrentAssets, f.CurrentAssetsPrev,
		f.CurrentLiabilities, f.CurrentLiabilitiesPrev,
		f.LongTermDebt, f.LongTermDebtPrev,
		f.SharesOutstanding, f.SharesOutstandingPrev,
		f.GrossMarginPct, f.GrossMarginPctPrev,
		f.Revenue, f.RevenuePrev,
		f.PromoterPledgePct,
	)
	if err != nil {
		return fmt.Errorf("save fundamentals for %s: %w", ticker, err)
	}
	return nil
}

// GetFundamentals returns the accounting snapshot, or (nil, nil) when the
// ticker has none: absence is a gate verdict, not a query failure
func (r *FundamentalsRepository) GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	var f contracts.Fundamentals
	err := r.pool.QueryRow(ctx, `
		SELECT
			net_income, net_income_prev, cfo,
			total_assets, total_assets_prev,
			current_assets, current_assets_prev,
			current_liabilities, current_liabilities_prev,
			long_term_debt, long_term_debt_prev,
			shares_outstanding, shares_outstanding_prev,
			gross_margin_pct, gross_margin_pct_prev,
			revenue, revenue_prev,
			promoter_pledge_pct
		FROM scanner.fundamentals
		WHERE ticker = $1
	`, ticker).Scan(
		&f.NetIncome, &f.NetIncomePrev, &f.CFO,
		&f.TotalAssets, &f.TotalAssetsPrev,
		&f.CurrentAssets, &f.CurrentAssetsPrev,
		&f.CurrentLiabilities, &f.CurrentLiabilitiesPrev,
		&f.LongTermDebt, &f.LongTermDebtPrev,
		&f.SharesOutstanding, &f.SharesOutstandingPrev,
		&f.GrossMarginPct, &f.GrossMarginPctPrev,
		&f.Revenue, &f.RevenuePrev,
		&f.PromoterPledgePct,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fundamentals for %s: %w", ticker, err)
	}
	return &f, nil
}

// SaveInstitutional upserts the shareholding snapshot for one ticker
func (r *FundamentalsRepository) SaveInstitutional(ctx context.Context, ticker string, inst *contracts.Institutional) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scanner.institutional (ticker, inst_ownership_pct, free_float_pct, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			inst_ownership_pct = EXCLUDED.inst_ownership_pct,
			free_float_pct = EXCLUDED.free_float_pct,
			updated_at = NOW()
	`, ticker, inst.InstOwnershipPct, inst.FreeFloatPct)
	if err != nil {
		return fmt.Errorf("save institutional for %s: %w", ticker, err)
	}
	return nil
}

// GetInstitutional returns the shareholding snapshot, or (nil, nil) when
// the ticker has none
func (r *FundamentalsRepository) GetInstitutional(ctx context.Context, ticker string) (*contracts.Institutional, error) {
	var inst contracts.Institutional
	err := r.pool.QueryRow(ctx, `
		SELECT inst_ownership_pct, free_float_pct
		FROM scanner.institutional
		WHERE ticker = $1
	`, ticker).Scan(&inst.InstOwnershipPct, &inst.FreeFloatPct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get institutional for %s: %w", ticker, err)
	}
	return &inst, nil
}
