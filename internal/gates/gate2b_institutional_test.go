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

func newInstitutionalGateForTest() *InstitutionalGate {
	return NewInstitutionalGate(config.Gate2BConfig{
		Tiers: map[string]config.TierThresholds{
			"LARGE": {MinInstOwnershipPct: 10, MinFreeFloatPct: 20},
			"MID":   {MinInstOwnershipPct: 15, MinFreeFloatPct: 25},
			"SMALL": {MinInstOwnershipPct: 20, MinFreeFloatPct: 30},
		},
	}, 4, logger.NewNop())
}

func TestInstitutionalGate_TierThresholds(t *testing.T) {
	g := newInstitutionalGateForTest()

	tests := []struct {
		name  string
		tier  contracts.CapTier
		inst  float64
		float float64
		pass  bool
	}{
		{"large cap at floor", contracts.CapLarge, 10, 20, true},
		{"large cap below inst floor", contracts.CapLarge, 9.9, 20, false},
		{"mid cap needs more than large", contracts.CapMid, 12, 30, false},
		{"mid cap at floor", contracts.CapMid, 15, 25, true},
		{"small cap strictest", contracts.CapSmall, 19, 35, false},
		{"small cap at floor", contracts.CapSmall, 20, 30, true},
		{"small cap thin float", contracts.CapSmall, 25, 29, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &contracts.Instrument{
				Ticker:  "X.NS",
				CapTier: tt.tier,
				Institutional: &contracts.Institutional{
					InstOwnershipPct: fptr(tt.inst),
					FreeFloatPct:     fptr(tt.float),
				},
			}
			result := g.evaluate(in)
			assert.Equal(t, tt.pass, result.Passed, result.Reason)
		})
	}
}

func TestInstitutionalGate_UnknownTierTreatedAsSmall(t *testing.T) {
	g := newInstitutionalGateForTest()

	// 12% institutional would clear LARGE but the tier is unresolved, so
	// the strictest (SMALL) floor applies
	in := &contracts.Instrument{
		Ticker:  "MYSTERY.NS",
		CapTier: "",
		Institutional: &contracts.Institutional{
			InstOwnershipPct: fptr(12),
			FreeFloatPct:     fptr(40),
		},
	}

	result := g.evaluate(in)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Reason, "SMALL")
}

func TestInstitutionalGate_MissingDataFails(t *testing.T) {
	g := newInstitutionalGateForTest()

	tests := []struct {
		name string
		inst *contracts.Institutional
	}{
		{"no snapshot", nil},
		{"ownership undisclosed", &contracts.Institutional{FreeFloatPct: fptr(50)}},
		{"float undisclosed", &contracts.Institutional{InstOwnershipPct: fptr(30)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &contracts.Instrument{Ticker: "X.NS", CapTier: contracts.CapLarge, Institutional: tt.inst}
			result := g.evaluate(in)
			assert.False(t, result.Passed)
		})
	}
}

func TestInstitutionalGate_RunNarrowsSurvivors(t *testing.T) {
	g := newInstitutionalGateForTest()

	batch := &contracts.Batch{Instruments: map[string]*contracts.Instrument{
		"GOOD.NS": {
			Ticker:  "GOOD.NS",
			CapTier: contracts.CapLarge,
			Institutional: &contracts.Institutional{
				InstOwnershipPct: fptr(25),
				FreeFloatPct:     fptr(45),
			},
		},
		"THIN.NS": {
			Ticker:  "THIN.NS",
			CapTier: contracts.CapSmall,
			Institutional: &contracts.Institutional{
				InstOwnershipPct: fptr(5),
				FreeFloatPct:     fptr(45),
			},
		},
	}}

	passed, results, err := g.Run(context.Background(), batch, []string{"GOOD.NS", "THIN.NS"})
	require.NoError(t, err)

	assert.Equal(t, []string{"GOOD.NS"}, passed)
	assert.Len(t, results, 2)
}
