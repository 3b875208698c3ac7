package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrail_MergeIsAppendOnly(t *testing.T) {
	trail := NewTrail()

	trail.Merge(GateNameSpread, map[string]GateResult{
		"TCS.NS": Pass("spread within sector norm", map[string]float64{"spread_z": 0.4}),
	})
	trail.Merge(GateNameSpread, map[string]GateResult{
		"TCS.NS": Fail("attempted rewrite", nil),
	})

	got, ok := trail.Get("TCS.NS", GateNameSpread)
	require.True(t, ok)
	assert.True(t, got.Passed, "an existing trail entry must never be overwritten")
	assert.Equal(t, "spread within sector norm", got.Reason)
}

func TestTrail_MergeAccumulatesAcrossGates(t *testing.T) {
	trail := NewTrail()

	trail.Merge(GateNameSpread, map[string]GateResult{
		"INFY.NS": Pass("ok", nil),
	})
	trail.Merge(GateNameFundamentals, map[string]GateResult{
		"INFY.NS": Fail("f-score 2 below minimum 4", map[string]float64{"f_score": 2}),
	})

	assert.Equal(t, 1, trail.Tickers())
	_, hasG1 := trail.Get("INFY.NS", GateNameSpread)
	_, hasG2 := trail.Get("INFY.NS", GateNameFundamentals)
	assert.True(t, hasG1)
	assert.True(t, hasG2)
}

func TestTrail_SerializesToPlainNestedPrimitives(t *testing.T) {
	trail := NewTrail()
	trail.Merge(GateNameTechnicals, map[string]GateResult{
		"SBIN.NS": SoftFail("ADX 7.2 < 10.0", map[string]float64{"adx": 7.2}),
	})

	data, err := json.Marshal(trail)
	require.NoError(t, err)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	entry := decoded["SBIN.NS"][GateNameTechnicals]
	assert.Equal(t, false, entry["passed"])
	assert.Equal(t, string(VerdictSoftFail), entry["verdict"])
	assert.Equal(t, "ADX 7.2 < 10.0", entry["reason"])
}

func TestCapTier_Normalize(t *testing.T) {
	tests := []struct {
		in   CapTier
		want CapTier
	}{
		{CapLarge, CapLarge},
		{CapMid, CapMid},
		{CapSmall, CapSmall},
		{"", CapSmall},
		{"UNKNOWN", CapSmall},
		{"mega", CapSmall},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize(), "tier %q", tt.in)
	}
}

func TestBatch_TickersSorted(t *testing.T) {
	batch := &Batch{
		Instruments: map[string]*Instrument{
			"ZEEL.NS": {Ticker: "ZEEL.NS"},
			"ABB.NS":  {Ticker: "ABB.NS"},
			"ITC.NS":  {Ticker: "ITC.NS"},
		},
	}

	assert.Equal(t, []string{"ABB.NS", "ITC.NS", "ZEEL.NS"}, batch.Tickers())
	assert.Equal(t, 3, batch.Count())

	var nilBatch *Batch
	assert.Equal(t, 0, nilBatch.Count())
}

func TestScanReport_Watchlist(t *testing.T) {
	report := &ScanReport{
		Candidates: []Candidate{
			{Ticker: "A.NS", Status: StatusBuy},
			{Ticker: "B.NS", Status: StatusCoilingSpring},
			{Ticker: "C.NS", Status: StatusBuy},
		},
	}

	assert.Equal(t, 2, report.BuyCount())

	springs := report.Watchlist()
	require.Len(t, springs, 1)
	assert.Equal(t, "B.NS", springs[0].Ticker)
}
