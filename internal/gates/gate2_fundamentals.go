package gates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// FundamentalsGate (Gate 2) scores accounting quality with a nine-signal
// Piotroski-style checklist plus two India-specific overlays: cash
// conversion (CFO/PAT) and promoter pledging. A missing disclosure never
// earns a point; the gate treats absent data as a failed signal rather
// than guessing.
type FundamentalsGate struct {
	cfg     config.Gate2Config
	workers int
	logger  *logger.Logger
}

// NewFundamentalsGate creates Gate 2
func NewFundamentalsGate(cfg config.Gate2Config, workers int, log *logger.Logger) *FundamentalsGate {
	return &FundamentalsGate{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("gate", contracts.GateNameFundamentals),
	}
}

// Name returns the trail key for this gate
func (g *FundamentalsGate) Name() string {
	return contracts.GateNameFundamentals
}

// Run evaluates accounting quality for every survivor
func (g *FundamentalsGate) Run(ctx context.Context, batch *contracts.Batch, survivors []string) ([]string, map[string]contracts.GateResult, error) {
	results, err := parallelMap(ctx, survivors, g.workers, func(ticker string) contracts.GateResult {
		in, ok := batch.Get(ticker)
		if !ok || in.Fundamentals == nil {
			return contracts.Fail("fundamentals unavailable", nil)
		}
		return g.evaluate(in.Fundamentals)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fundamentals pass aborted: %w", err)
	}

	passed := survivorsOf(results)
	g.logger.WithFields(map[string]interface{}{
		"input":  len(survivors),
		"passed": len(passed),
	}).Info("Fundamentals gate completed")

	return passed, results, nil
}

func (g *FundamentalsGate) evaluate(f *contracts.Fundamentals) contracts.GateResult {
	score, failed := fScore(f)

	metrics := map[string]float64{"f_score": float64(score)}

	if score < g.cfg.MinFScore {
		return contracts.Fail(
			fmt.Sprintf("F-Score %d below minimum %d (missed: %s)", score, g.cfg.MinFScore, strings.Join(failed, ", ")),
			metrics,
		)
	}

	// Cash conversion: reported profits must be backed by operating cash
	cfoPAT, err := cashConversion(f)
	if errors.Is(err, contracts.ErrMissingField) {
		return contracts.Fail("CFO or PAT undisclosed; cash conversion unverifiable", metrics)
	}
	if err != nil {
		return contracts.Fail("PAT non-positive; cash conversion check requires profitability", metrics)
	}
	metrics["cfo_pat"] = cfoPAT
	if cfoPAT < g.cfg.MinCFOPAT {
		return contracts.Fail(
			fmt.Sprintf("CFO/PAT %.2f below minimum %.2f", cfoPAT, g.cfg.MinCFOPAT),
			metrics,
		)
	}

	// Promoter pledging: undisclosed pledge reads as risk, not as zero
	pledge, err := promoterPledge(f)
	if errors.Is(err, contracts.ErrMissingField) {
		return contracts.Fail("promoter pledge undisclosed", metrics)
	}
	metrics["promoter_pledge_pct"] = pledge
	if pledge > g.cfg.MaxPromoterPledge {
		return contracts.Fail(
			fmt.Sprintf("promoter pledge %.1f%% above ceiling %.1f%%", pledge, g.cfg.MaxPromoterPledge),
			metrics,
		)
	}

	return contracts.Pass(
		fmt.Sprintf("F-Score %d, CFO/PAT %.2f, pledge %.1f%%", score, cfoPAT, pledge),
		metrics,
	)
}

// cashConversion computes CFO/PAT. Undisclosed inputs are
// ErrMissingField; a non-positive PAT makes the ratio meaningless and
// surfaces as ErrCompute.
func cashConversion(f *contracts.Fundamentals) (float64, error) {
	if f.CFO == nil || f.NetIncome == nil {
		return 0, contracts.ErrMissingField
	}
	if *f.NetIncome <= 0 {
		return 0, contracts.ErrCompute
	}
	return *f.CFO / *f.NetIncome, nil
}

func promoterPledge(f *contracts.Fundamentals) (float64, error) {
	if f.PromoterPledgePct == nil {
		return 0, contracts.ErrMissingField
	}
	return *f.PromoterPledgePct, nil
}

// fScore computes the nine-signal quality score. Each signal is one point;
// a signal whose inputs are missing scores zero. Returns the score and the
// names of the signals that did not earn a point.
func fScore(f *contracts.Fundamentals) (int, []string) {
	type signal struct {
		name string
		ok   bool
	}

	signals := []signal{
		{"positive ROA", both(f.NetIncome, f.TotalAssets, func(ni, ta float64) bool {
			return ta > 0 && ni/ta > 0
		})},
		{"positive CFO", one(f.CFO, func(cfo float64) bool {
			return cfo > 0
		})},
		{"improving ROA", roaImproving(f)},
		{"CFO exceeds PAT", both(f.CFO, f.NetIncome, func(cfo, ni float64) bool {
			return cfo > ni
		})},
		{"declining leverage", leverageDeclining(f)},
		{"improving liquidity", currentRatioImproving(f)},
		{"no dilution", both(f.SharesOutstanding, f.SharesOutstandingPrev, func(cur, prev float64) bool {
			return cur <= prev
		})},
		{"improving gross margin", both(f.GrossMarginPct, f.GrossMarginPctPrev, func(cur, prev float64) bool {
			return cur > prev
		})},
		{"improving asset turnover", turnoverImproving(f)},
	}

	score := 0
	var failed []string
	for _, s := range signals {
		if s.ok {
			score++
		} else {
			failed = append(failed, s.name)
		}
	}
	return score, failed
}

func one(a *float64, test func(float64) bool) bool {
	return a != nil && test(*a)
}

func both(a, b *float64, test func(a, b float64) bool) bool {
	return a != nil && b != nil && test(*a, *b)
}

func roaImproving(f *contracts.Fundamentals) bool {
	if f.NetIncome == nil || f.TotalAssets == nil || f.NetIncomePrev == nil || f.TotalAssetsPrev == nil {
		return false
	}
	if *f.TotalAssets <= 0 || *f.TotalAssetsPrev <= 0 {
		return false
	}
	return *f.NetIncome / *f.TotalAssets > *f.NetIncomePrev / *f.TotalAssetsPrev
}

func leverageDeclining(f *contracts.Fundamentals) bool {
	if f.LongTermDebt == nil || f.TotalAssets == nil || f.LongTermDebtPrev == nil || f.TotalAssetsPrev == nil {
		return false
	}
	if *f.TotalAssets <= 0 || *f.TotalAssetsPrev <= 0 {
		return false
	}
	return *f.LongTermDebt / *f.TotalAssets <= *f.LongTermDebtPrev / *f.TotalAssetsPrev
}

func currentRatioImproving(f *contracts.Fundamentals) bool {
	if f.CurrentAssets == nil || f.CurrentLiabilities == nil || f.CurrentAssetsPrev == nil || f.CurrentLiabilitiesPrev == nil {
		return false
	}
	if *f.CurrentLiabilities <= 0 || *f.CurrentLiabilitiesPrev <= 0 {
		return false
	}
	return *f.CurrentAssets / *f.CurrentLiabilities > *f.CurrentAssetsPrev / *f.CurrentLiabilitiesPrev
}

func turnoverImproving(f *contracts.Fundamentals) bool {
	if f.Revenue == nil || f.TotalAssets == nil || f.RevenuePrev == nil || f.TotalAssetsPrev == nil {
		return false
	}
	if *f.TotalAssets <= 0 || *f.TotalAssetsPrev <= 0 {
		return false
	}
	return *f.Revenue / *f.TotalAssets > *f.RevenuePrev / *f.TotalAssetsPrev
}
