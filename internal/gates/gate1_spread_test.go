package gates

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

func spreadTestConfig() config.Gate1Config {
	return config.Gate1Config{
		MaxSpreadZScore: 2.0,
		MaxAbsSpread:    0.5,
		RollingWindow:   5,
	}
}

func newSpreadGateForTest() *SpreadGate {
	return NewSpreadGate(spreadTestConfig(), 4, logger.NewNop())
}

func TestSpreadGate_SectorOutlierRejected(t *testing.T) {
	g := newSpreadGateForTest()

	instruments := make(map[string]*contracts.Instrument)
	var survivors []string
	for i := 0; i < 8; i++ {
		ticker := fmt.Sprintf("PEER%d.NS", i)
		instruments[ticker] = &contracts.Instrument{
			Ticker: ticker,
			Sector: "IT",
			Series: trendSeries(10, 100, 1, 0.01, 1000),
		}
		survivors = append(survivors, ticker)
	}
	instruments["WIDE.NS"] = &contracts.Instrument{
		Ticker: "WIDE.NS",
		Sector: "IT",
		Series: trendSeries(10, 100, 1, 0.30, 1000),
	}
	survivors = append(survivors, "WIDE.NS")

	batch := &contracts.Batch{Instruments: instruments}
	passed, results, err := g.Run(context.Background(), batch, survivors)
	require.NoError(t, err)

	assert.Len(t, passed, 8)
	assert.NotContains(t, passed, "WIDE.NS")
	assert.Equal(t, contracts.VerdictHardFail, results["WIDE.NS"].Verdict)
	assert.Contains(t, results["WIDE.NS"].Reason, "z-score")
}

func TestSpreadGate_AbsoluteCapFailsAtBoundary(t *testing.T) {
	// A spread of exactly the cap is untradeable and must fail even when
	// there is no sector peer group to z-score against.
	g := newSpreadGateForTest()

	in := &contracts.Instrument{
		Ticker: "ILLIQ.NS",
		Sector: "Realty",
		Series: trendSeries(10, 100, 0, 0.5, 1000),
	}
	batch := singleBatch(in)

	passed, results, err := g.Run(context.Background(), batch, []string{"ILLIQ.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	result := results["ILLIQ.NS"]
	assert.Equal(t, contracts.VerdictHardFail, result.Verdict)
	assert.Contains(t, result.Reason, "absolute cap")
	assert.InDelta(t, 0.5, result.Metrics["spread"], 1e-9)
}

func TestSpreadGate_ZScoreBoundaryInclusive(t *testing.T) {
	g := newSpreadGateForTest()
	batch := singleBatch(&contracts.Instrument{
		Ticker: "EDGE.NS",
		Sector: "IT",
		Series: trendSeries(10, 100, 1, 0.02, 1000),
	})
	stats := map[string]sectorStats{
		"IT": {mean: 0.01, std: 0.005, count: 5},
	}

	// z = (0.02 - 0.01) / 0.005 = 2.0 exactly: at the limit still passes
	result := g.evaluate(batch, "EDGE.NS", spreadValue{value: 0.02}, stats)
	assert.True(t, result.Passed)
	assert.InDelta(t, 2.0, result.Metrics["spread_z"], 1e-9)

	// One tick beyond fails
	result = g.evaluate(batch, "EDGE.NS", spreadValue{value: 0.0201}, stats)
	assert.False(t, result.Passed)
}

func TestSpreadGate_DegenerateSectorFallsBackToAbsCap(t *testing.T) {
	g := newSpreadGateForTest()

	in := &contracts.Instrument{
		Ticker: "LONE.NS",
		Sector: "Shipbuilding",
		Series: trendSeries(10, 100, 1, 0.02, 1000),
	}
	batch := singleBatch(in)

	passed, results, err := g.Run(context.Background(), batch, []string{"LONE.NS"})
	require.NoError(t, err)

	assert.Equal(t, []string{"LONE.NS"}, passed)
	assert.Contains(t, results["LONE.NS"].Reason, "degenerate")
}

func TestSpreadGate_UnknownSectorExemptFromZTest(t *testing.T) {
	g := newSpreadGateForTest()

	in := &contracts.Instrument{
		Ticker: "NOSEC.NS",
		Sector: "",
		Series: trendSeries(10, 100, 1, 0.02, 1000),
	}
	batch := singleBatch(in)

	passed, results, err := g.Run(context.Background(), batch, []string{"NOSEC.NS"})
	require.NoError(t, err)

	assert.Equal(t, []string{"NOSEC.NS"}, passed)
	assert.Contains(t, results["NOSEC.NS"].Reason, "unsectored")
}

func TestSpreadGate_ShortHistoryFails(t *testing.T) {
	g := newSpreadGateForTest()

	in := &contracts.Instrument{
		Ticker: "NEWLIST.NS",
		Sector: "IT",
		Series: trendSeries(3, 100, 1, 0.01, 1000),
	}
	batch := singleBatch(in)

	passed, results, err := g.Run(context.Background(), batch, []string{"NEWLIST.NS"})
	require.NoError(t, err)

	assert.Empty(t, passed)
	assert.Equal(t, "insufficient history", results["NEWLIST.NS"].Reason)
}

func TestSpreadGate_CancelledContextReturnsError(t *testing.T) {
	// An interrupted run must surface the cancellation, never record a
	// verdict for an instrument it did not evaluate. This spread breaches
	// the absolute cap; a fabricated zero would read as a pass.
	g := newSpreadGateForTest()

	in := &contracts.Instrument{
		Ticker: "WIDE.NS",
		Sector: "Metals",
		Series: trendSeries(10, 100, 0, 0.6, 1000),
	}
	batch := singleBatch(in)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	passed, results, err := g.Run(ctx, batch, []string{"WIDE.NS"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, passed)
	assert.Nil(t, results)
}

func TestUsableGroup_DegenerateSectors(t *testing.T) {
	assert.ErrorIs(t, usableGroup(sectorStats{}, false), contracts.ErrDegenerateGroup)
	assert.ErrorIs(t, usableGroup(sectorStats{count: 1, std: 0.1}, true), contracts.ErrDegenerateGroup)
	assert.ErrorIs(t, usableGroup(sectorStats{count: 5, std: 0}, true), contracts.ErrDegenerateGroup)
	assert.NoError(t, usableGroup(sectorStats{count: 5, std: 0.1}, true))
}
