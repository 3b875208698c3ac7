package gates

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// Short moving averages keep the fixtures small; the ordering logic is
// identical at any window length.
func technicalsTestConfig() config.Gate3Config {
	return config.Gate3Config{
		MinADX:            10,
		MinMansfieldSlope: 0.01,
		MAShort:           5,
		MAMid:             10,
		MALong:            20,
		RSLookbackWeeks:   4,
	}
}

func newTechnicalsGateForTest() *TechnicalsGate {
	return NewTechnicalsGate(technicalsTestConfig(), 4, logger.NewNop())
}

// accelSeries builds a series whose relative growth rate increases every
// session, so relative strength against a flat benchmark keeps improving
func accelSeries(n int) []contracts.Candle {
	series := make([]contracts.Candle, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 * math.Exp(0.0005*float64(i)*float64(i))
		series[i] = contracts.Candle{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return series
}

func TestTechnicalsGate_ConfirmedUptrendPasses(t *testing.T) {
	g := newTechnicalsGateForTest()

	batch := singleBatch(&contracts.Instrument{Ticker: "LEAD.NS", Series: accelSeries(60)})
	batch.Benchmark = flatSeries(60, 100, 1000)

	passed, results, err := g.Run(context.Background(), batch, []string{"LEAD.NS"})
	require.NoError(t, err)

	require.Equal(t, []string{"LEAD.NS"}, passed)
	result := results["LEAD.NS"]
	assert.Equal(t, contracts.VerdictPass, result.Verdict)
	assert.GreaterOrEqual(t, result.Metrics["adx"], 10.0)
	assert.GreaterOrEqual(t, result.Metrics["mrs_slope"], 0.01)
	assert.Positive(t, result.Metrics["mrs"])
}

func TestTechnicalsGate_LaggardIsCoilingSpring(t *testing.T) {
	g := newTechnicalsGateForTest()

	// Rising in lockstep with the benchmark: structure intact but zero
	// relative strength improvement. Soft fail, never hard fail.
	series := trendSeries(60, 100, 1, 0.02, 1000)
	batch := singleBatch(&contracts.Instrument{Ticker: "SLEEP.NS", Series: series})
	batch.Benchmark = series

	passed, results, err := g.Run(context.Background(), batch, []string{"SLEEP.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	result := results["SLEEP.NS"]
	assert.Equal(t, contracts.VerdictSoftFail, result.Verdict)
	assert.Contains(t, result.Reason, "coiling spring")
	assert.InDelta(t, 0.0, result.Metrics["mrs_slope"], 1e-9)
}

func TestTechnicalsGate_BrokenTemplateHardFails(t *testing.T) {
	g := newTechnicalsGateForTest()

	batch := singleBatch(&contracts.Instrument{
		Ticker: "DOWN.NS",
		Series: trendSeries(60, 200, -1, 0.02, 1000),
	})
	batch.Benchmark = flatSeries(60, 100, 1000)

	passed, results, err := g.Run(context.Background(), batch, []string{"DOWN.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	result := results["DOWN.NS"]
	assert.Equal(t, contracts.VerdictHardFail, result.Verdict)
	assert.Contains(t, result.Reason, "trend template broken")
}

func TestTechnicalsGate_FlatLongMAHardFails(t *testing.T) {
	g := newTechnicalsGateForTest()

	// A collapsed former high leaves the recent ordering intact while the
	// long MA sits far below where it was 20 sessions ago
	series := flatSeries(20, 100, 1000)
	series = append(series, flatSeries(20, 500, 1000)...)
	series = append(series, trendSeries(20, 100, 1.5, 0.02, 1000)...)

	batch := singleBatch(&contracts.Instrument{Ticker: "POP.NS", Series: series})
	batch.Benchmark = flatSeries(60, 100, 1000)

	_, results, err := g.Run(context.Background(), batch, []string{"POP.NS"})
	require.NoError(t, err)

	result := results["POP.NS"]
	assert.Equal(t, contracts.VerdictHardFail, result.Verdict)
	assert.Contains(t, result.Reason, "not rising")
}

func TestTechnicalsGate_MissingBenchmarkSoftFails(t *testing.T) {
	g := newTechnicalsGateForTest()

	batch := singleBatch(&contracts.Instrument{Ticker: "LEAD.NS", Series: accelSeries(60)})

	passed, results, err := g.Run(context.Background(), batch, []string{"LEAD.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	result := results["LEAD.NS"]
	assert.Equal(t, contracts.VerdictSoftFail, result.Verdict)
	assert.Contains(t, result.Reason, "benchmark unavailable")
}

func TestTechnicalsGate_ShortHistoryHardFails(t *testing.T) {
	g := newTechnicalsGateForTest()

	batch := singleBatch(&contracts.Instrument{Ticker: "NEW.NS", Series: accelSeries(25)})
	batch.Benchmark = flatSeries(25, 100, 1000)

	_, results, err := g.Run(context.Background(), batch, []string{"NEW.NS"})
	require.NoError(t, err)

	result := results["NEW.NS"]
	assert.Equal(t, contracts.VerdictHardFail, result.Verdict)
	assert.Equal(t, "insufficient history", result.Reason)
}
