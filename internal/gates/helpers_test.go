package gates

import (
	"time"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// trendSeries builds n daily candles with close moving from start by step
// per session. rangePct controls (High-Low)/Close per bar, so the rolling
// spread of the series equals rangePct exactly.
func trendSeries(n int, start, step, rangePct, volume float64) []contracts.Candle {
	series := make([]contracts.Candle, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		series[i] = contracts.Candle{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * (1 + rangePct/2),
			Low:    c * (1 - rangePct/2),
			Close:  c,
			Volume: volume,
		}
	}
	return series
}

// flatSeries builds n identical candles with zero range
func flatSeries(n int, price, volume float64) []contracts.Candle {
	return trendSeries(n, price, 0, 0, volume)
}

func fptr(v float64) *float64 {
	return &v
}

// healthyFundamentals scores 9/9 on the quality checklist with strong
// cash conversion and no pledging
func healthyFundamentals() *contracts.Fundamentals {
	return &contracts.Fundamentals{
		NetIncome:       fptr(100),
		NetIncomePrev:   fptr(50),
		CFO:             fptr(150),
		TotalAssets:     fptr(1000),
		TotalAssetsPrev: fptr(1000),

		CurrentAssets:          fptr(300),
		CurrentAssetsPrev:      fptr(250),
		CurrentLiabilities:     fptr(100),
		CurrentLiabilitiesPrev: fptr(100),

		LongTermDebt:     fptr(100),
		LongTermDebtPrev: fptr(200),

		SharesOutstanding:     fptr(100),
		SharesOutstandingPrev: fptr(100),

		GrossMarginPct:     fptr(40),
		GrossMarginPctPrev: fptr(35),

		Revenue:     fptr(2000),
		RevenuePrev: fptr(1800),

		PromoterPledgePct: fptr(0),
	}
}

func singleBatch(in *contracts.Instrument) *contracts.Batch {
	return &contracts.Batch{
		Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Instruments: map[string]*contracts.Instrument{in.Ticker: in},
	}
}
