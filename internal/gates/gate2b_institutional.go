package gates

import (
	"context"
	"fmt"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// InstitutionalGate (Gate 2B) checks that smart money is already present
// and that the float is wide enough to trade. Thresholds scale by cap
// tier: the smaller the company, the more institutional sponsorship and
// float it must show. Unresolved tiers are normalized to SMALL so missing
// metadata always faces the strictest bar.
type InstitutionalGate struct {
	cfg     config.Gate2BConfig
	workers int
	logger  *logger.Logger
}

// NewInstitutionalGate creates Gate 2B
func NewInstitutionalGate(cfg config.Gate2BConfig, workers int, log *logger.Logger) *InstitutionalGate {
	return &InstitutionalGate{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("gate", contracts.GateNameInstitutional),
	}
}

// Name returns the trail key for this gate
func (g *InstitutionalGate) Name() string {
	return contracts.GateNameInstitutional
}

// Run evaluates institutional sponsorship for every survivor
func (g *InstitutionalGate) Run(ctx context.Context, batch *contracts.Batch, survivors []string) ([]string, map[string]contracts.GateResult, error) {
	results, err := parallelMap(ctx, survivors, g.workers, func(ticker string) contracts.GateResult {
		in, ok := batch.Get(ticker)
		if !ok {
			return contracts.Fail("instrument missing from batch", nil)
		}
		return g.evaluate(in)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("institutional pass aborted: %w", err)
	}

	passed := survivorsOf(results)
	g.logger.WithFields(map[string]interface{}{
		"input":  len(survivors),
		"passed": len(passed),
	}).Info("Institutional gate completed")

	return passed, results, nil
}

func (g *InstitutionalGate) evaluate(in *contracts.Instrument) contracts.GateResult {
	tier := in.CapTier.Normalize()
	th, ok := g.cfg.Tiers[string(tier)]
	if !ok {
		return contracts.Fail(fmt.Sprintf("no thresholds configured for tier %s", tier), nil)
	}

	if in.Institutional == nil {
		return contracts.Fail(fmt.Sprintf("institutional data unavailable (tier %s)", tier), nil)
	}

	metrics := map[string]float64{}

	if in.Institutional.InstOwnershipPct == nil {
		return contracts.Fail(fmt.Sprintf("institutional ownership undisclosed (tier %s)", tier), metrics)
	}
	inst := *in.Institutional.InstOwnershipPct
	metrics["inst_ownership_pct"] = inst
	if inst < th.MinInstOwnershipPct {
		return contracts.Fail(
			fmt.Sprintf("institutional ownership %.1f%% below %s floor %.1f%%", inst, tier, th.MinInstOwnershipPct),
			metrics,
		)
	}

	if in.Institutional.FreeFloatPct == nil {
		return contracts.Fail(fmt.Sprintf("free float undisclosed (tier %s)", tier), metrics)
	}
	float := *in.Institutional.FreeFloatPct
	metrics["free_float_pct"] = float
	if float < th.MinFreeFloatPct {
		return contracts.Fail(
			fmt.Sprintf("free float %.1f%% below %s floor %.1f%%", float, tier, th.MinFreeFloatPct),
			metrics,
		)
	}

	return contracts.Pass(
		fmt.Sprintf("institutional %.1f%%, float %.1f%% meet %s floors", inst, float, tier),
		metrics,
	)
}
