package contracts

import (
	"sort"
	"time"
)

// CapTier classifies instruments by market capitalization
type CapTier string

const (
	CapLarge CapTier = "LARGE"
	CapMid   CapTier = "MID"
	CapSmall CapTier = "SMALL"
)

// Normalize maps unknown or missing tiers to the strictest tier (SMALL),
// so an instrument with unresolved metadata never gets the looser thresholds.
func (t CapTier) Normalize() CapTier {
	switch t {
	case CapLarge, CapMid, CapSmall:
		return t
	default:
		return CapSmall
	}
}

// Candle is one daily OHLCV row
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Fundamentals is one accounting snapshot (current and prior fiscal year).
// Fields are pointers: a nil field means the disclosure is missing, and every
// quality signal that needs a missing field conservatively counts as failed.
type Fundamentals struct {
	NetIncome       *float64 `json:"net_income,omitempty"`
	NetIncomePrev   *float64 `json:"net_income_prev,omitempty"`
	CFO             *float64 `json:"cfo,omitempty"`
	TotalAssets     *float64 `json:"total_assets,omitempty"`
	TotalAssetsPrev *float64 `json:"total_assets_prev,omitempty"`

	CurrentAssets          *float64 `json:"current_assets,omitempty"`
	CurrentAssetsPrev      *float64 `json:"current_assets_prev,omitempty"`
	CurrentLiabilities     *float64 `json:"current_liabilities,omitempty"`
	CurrentLiabilitiesPrev *float64 `json:"current_liabilities_prev,omitempty"`

	LongTermDebt     *float64 `json:"long_term_debt,omitempty"`
	LongTermDebtPrev *float64 `json:"long_term_debt_prev,omitempty"`

	SharesOutstanding     *float64 `json:"shares_outstanding,omitempty"`
	SharesOutstandingPrev *float64 `json:"shares_outstanding_prev,omitempty"`

	GrossMarginPct     *float64 `json:"gross_margin_pct,omitempty"`
	GrossMarginPctPrev *float64 `json:"gross_margin_pct_prev,omitempty"`

	Revenue     *float64 `json:"revenue,omitempty"`
	RevenuePrev *float64 `json:"revenue_prev,omitempty"`

	PromoterPledgePct *float64 `json:"promoter_pledge_pct,omitempty"`
}

// Institutional is the institutional ownership snapshot
type Institutional struct {
	InstOwnershipPct *float64 `json:"inst_ownership_pct,omitempty"`
	FreeFloatPct     *float64 `json:"free_float_pct,omitempty"`
}

// Instrument is one equity with everything the gates need.
// Owned by the Batch for the duration of one scan; gates never mutate it.
type Instrument struct {
	Ticker        string         `json:"ticker"`
	Name          string         `json:"name,omitempty"`
	Sector        string         `json:"sector"` // "Unknown" when unresolved
	CapTier       CapTier        `json:"cap_tier"`
	Series        []Candle       `json:"series"` // chronological daily rows
	Fundamentals  *Fundamentals  `json:"fundamentals,omitempty"`
	Institutional *Institutional `json:"institutional,omitempty"`
}

// LastClose returns the most recent close, or 0 for an empty series
func (in *Instrument) LastClose() float64 {
	if len(in.Series) == 0 {
		return 0
	}
	return in.Series[len(in.Series)-1].Close
}

// SectorOrUnknown collapses an empty sector to the explicit "Unknown" group
func (in *Instrument) SectorOrUnknown() string {
	if in.Sector == "" {
		return SectorUnknown
	}
	return in.Sector
}

// SectorUnknown is the degenerate sector group for unclassified instruments
const SectorUnknown = "Unknown"

// Batch is the immutable per-scan snapshot handed to the pipeline.
// The data layer finishes all I/O before constructing it; nothing in the
// pipeline blocks on network or disk.
type Batch struct {
	Date        time.Time              `json:"date"`
	Instruments map[string]*Instrument `json:"instruments"`

	// Benchmark index series for Mansfield relative strength (e.g. Nifty 500)
	Benchmark []Candle `json:"benchmark,omitempty"`

	// Minutes of the trading session elapsed at scan time, for Gate 4's
	// prorated volume expectation. A full-session (end-of-day) scan passes
	// the whole session length.
	ElapsedSessionMinutes float64 `json:"elapsed_session_minutes"`
}

// Count returns the number of instruments in the batch
func (b *Batch) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Instruments)
}

// Tickers returns all tickers in deterministic order
func (b *Batch) Tickers() []string {
	tickers := make([]string, 0, len(b.Instruments))
	for t := range b.Instruments {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Get returns the instrument for a ticker
func (b *Batch) Get(ticker string) (*Instrument, bool) {
	in, ok := b.Instruments[ticker]
	return in, ok
}
