package gates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

func executionTestConfig() config.Gate4Config {
	return config.Gate4Config{
		VolProrateFactor:  0.85,
		MinRRRatio:        2.0,
		ATRPeriod:         14,
		ATRStopMultiplier: 2.0,
		VolAvgDays:        20,
		MarketOpenMinutes: 375,
	}
}

func newExecutionGateForTest() *ExecutionGate {
	return NewExecutionGate(executionTestConfig(), 4, logger.NewNop())
}

// seriesWithTodayVolume appends one candle with a specific volume onto a
// base of uniform-volume history
func seriesWithTodayVolume(todayVolume float64) []contracts.Candle {
	series := trendSeries(30, 100, 1, 0.04, 1000)
	today := series[len(series)-1]
	today.Volume = todayVolume
	series[len(series)-1] = today
	return series
}

func TestExecutionGate_FullSessionVolumeCheck(t *testing.T) {
	g := newExecutionGateForTest()

	// Full session: expectation = 1000 * 1.0 * 0.85 = 850
	tests := []struct {
		name   string
		volume float64
		pass   bool
	}{
		{"at expectation", 850, true},
		{"above expectation", 1200, true},
		{"just below", 849, false},
		{"dried up", 300, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &contracts.Instrument{Ticker: "VOL.NS", Series: seriesWithTodayVolume(tt.volume)}
			batch := singleBatch(in)
			batch.ElapsedSessionMinutes = 375

			passed, results, err := g.Run(context.Background(), batch, []string{"VOL.NS"})
			require.NoError(t, err)

			assert.Equal(t, tt.pass, len(passed) == 1, results["VOL.NS"].Reason)
		})
	}
}

func TestExecutionGate_ProratesForPartialSession(t *testing.T) {
	g := newExecutionGateForTest()

	// Half the session elapsed: expectation = 1000 * 0.5 * 0.85 = 425.
	// A volume that fails end-of-day passes mid-session.
	in := &contracts.Instrument{Ticker: "VOL.NS", Series: seriesWithTodayVolume(500)}
	batch := singleBatch(in)
	batch.ElapsedSessionMinutes = 187.5

	passed, results, err := g.Run(context.Background(), batch, []string{"VOL.NS"})
	require.NoError(t, err)

	assert.Equal(t, []string{"VOL.NS"}, passed)
	assert.InDelta(t, 425, results["VOL.NS"].Metrics["expected_volume"], 1e-6)
}

func TestExecutionGate_ZeroElapsedDefaultsToFullSession(t *testing.T) {
	g := newExecutionGateForTest()

	in := &contracts.Instrument{Ticker: "VOL.NS", Series: seriesWithTodayVolume(500)}
	batch := singleBatch(in)
	batch.ElapsedSessionMinutes = 0

	passed, _, err := g.Run(context.Background(), batch, []string{"VOL.NS"})
	require.NoError(t, err)
	assert.Empty(t, passed, "500 against a full-session expectation of 850 must fail")
}

func TestExecutionGate_TradePlanGeometry(t *testing.T) {
	g := newExecutionGateForTest()

	in := &contracts.Instrument{Ticker: "PLAN.NS", Series: trendSeries(30, 100, 1, 0.04, 1000)}
	plan, err := g.TradePlan(in)
	require.NoError(t, err)

	assert.Equal(t, 129.0, plan.Entry)
	assert.Less(t, plan.Stop, plan.Entry)

	risk := plan.Entry - plan.Stop
	assert.InDelta(t, plan.Entry+2*risk, plan.Target, 1e-9)
	assert.Equal(t, 2.0, plan.RiskReward)
	assert.Equal(t, contracts.PeriodPositional, plan.Period)
}

func TestExecutionGate_DegenerateATRRejectsPlan(t *testing.T) {
	g := newExecutionGateForTest()

	// Zero-range history gives ATR 0 and a stop at the entry: unexecutable
	in := &contracts.Instrument{Ticker: "FROZEN.NS", Series: flatSeries(30, 100, 1000)}
	_, err := g.TradePlan(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop")
}

func TestExecutionGate_PlanRejectionFailsGate(t *testing.T) {
	g := newExecutionGateForTest()

	in := &contracts.Instrument{Ticker: "FROZEN.NS", Series: flatSeries(30, 100, 1000)}
	batch := singleBatch(in)
	batch.ElapsedSessionMinutes = 375

	passed, results, err := g.Run(context.Background(), batch, []string{"FROZEN.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	assert.Contains(t, results["FROZEN.NS"].Reason, "trade plan rejected")
}

func TestExecutionGate_ShortHistoryFails(t *testing.T) {
	g := newExecutionGateForTest()

	in := &contracts.Instrument{Ticker: "NEW.NS", Series: trendSeries(10, 100, 1, 0.04, 1000)}
	batch := singleBatch(in)

	passed, results, err := g.Run(context.Background(), batch, []string{"NEW.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	assert.Equal(t, "insufficient history", results["NEW.NS"].Reason)
}
