package gates

import (
	"context"
	"errors"
	"fmt"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// Pattern labels produced by structure detection
const (
	PatternVCP     = "VCP Tight Consolidation"
	PatternStage2  = "Stage 2 Uptrend"
	PatternUnknown = "Undetermined"
)

// PatternFor labels the trailing consolidation structure of a series.
// Exposed for the pipeline, which stamps the label onto candidates.
func PatternFor(series []contracts.Candle) string {
	if len(series) == 0 {
		return PatternUnknown
	}
	return detectPattern(series)
}

// TechnicalsGate (Gate 3) is the trend filter with the pipeline's only
// three-way verdict. Structure comes first: an instrument not in a
// Stage 2 alignment (close above rising long-term moving averages, each
// above the next) is a hard fail. An instrument with the structure but
// without momentum yet (ADX or relative-strength slope below threshold)
// is a soft fail: a coiling spring that downstream stages keep on watch
// instead of discarding.
type TechnicalsGate struct {
	cfg     config.Gate3Config
	workers int
	logger  *logger.Logger
}

// NewTechnicalsGate creates Gate 3
func NewTechnicalsGate(cfg config.Gate3Config, workers int, log *logger.Logger) *TechnicalsGate {
	return &TechnicalsGate{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("gate", contracts.GateNameTechnicals),
	}
}

// Name returns the trail key for this gate
func (g *TechnicalsGate) Name() string {
	return contracts.GateNameTechnicals
}

// Run evaluates trend structure and momentum for every survivor
func (g *TechnicalsGate) Run(ctx context.Context, batch *contracts.Batch, survivors []string) ([]string, map[string]contracts.GateResult, error) {
	benchmark := closes(batch.Benchmark)

	results, err := parallelMap(ctx, survivors, g.workers, func(ticker string) contracts.GateResult {
		in, ok := batch.Get(ticker)
		if !ok {
			return contracts.Fail("instrument missing from batch", nil)
		}
		return g.evaluate(in, benchmark)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("technicals pass aborted: %w", err)
	}

	passed := survivorsOf(results)
	soft := 0
	for _, r := range results {
		if r.Verdict == contracts.VerdictSoftFail {
			soft++
		}
	}
	g.logger.WithFields(map[string]interface{}{
		"input":      len(survivors),
		"passed":     len(passed),
		"soft_fails": soft,
	}).Info("Technicals gate completed")

	return passed, results, nil
}

// maSlopeLookback is how far back the long MA is compared to call it rising
const maSlopeLookback = 20

// adxPeriod is the standard Wilder lookback
const adxPeriod = 14

func (g *TechnicalsGate) evaluate(in *contracts.Instrument, benchmark []float64) contracts.GateResult {
	series := closes(in.Series)
	last := len(series) - 1

	if len(series) < g.cfg.MALong+maSlopeLookback {
		return contracts.Fail("insufficient history", nil)
	}

	lastClose := series[last]
	maShort, err1 := sma(series, last, g.cfg.MAShort)
	maMid, err2 := sma(series, last, g.cfg.MAMid)
	maLong, err3 := sma(series, last, g.cfg.MALong)
	maLongPrior, err4 := sma(series, last-maSlopeLookback, g.cfg.MALong)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return contracts.Fail("insufficient history", nil)
	}

	metrics := map[string]float64{
		"close":    lastClose,
		"ma_short": maShort,
		"ma_mid":   maMid,
		"ma_long":  maLong,
	}

	// Structural template: strict ordering, and the long MA must be rising
	if !(lastClose > maShort && maShort > maMid && maMid > maLong) {
		return contracts.Fail(
			fmt.Sprintf("trend template broken: close %.2f, MA%d %.2f, MA%d %.2f, MA%d %.2f",
				lastClose, g.cfg.MAShort, maShort, g.cfg.MAMid, maMid, g.cfg.MALong, maLong),
			metrics,
		)
	}
	if maLong <= maLongPrior {
		return contracts.Fail(
			fmt.Sprintf("MA%d not rising (%.2f vs %.2f %d sessions ago)",
				g.cfg.MALong, maLong, maLongPrior, maSlopeLookback),
			metrics,
		)
	}

	// Momentum half. Benchmark outages degrade to soft fail rather than
	// discarding a structurally sound instrument.
	if len(benchmark) == 0 {
		return contracts.SoftFail("trend template intact but RS benchmark unavailable", metrics)
	}

	adxVal, err := adx(in.Series, adxPeriod)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientHistory) {
			return contracts.Fail("insufficient history for ADX", metrics)
		}
		return contracts.Fail(fmt.Sprintf("ADX computation failed: %v", err), metrics)
	}
	metrics["adx"] = adxVal

	mrs, slope, err := mansfieldRS(series, benchmark, g.cfg.RSLookbackWeeks)
	if err != nil {
		return contracts.SoftFail(
			fmt.Sprintf("trend template intact but relative strength unavailable: %v", err),
			metrics,
		)
	}
	metrics["mrs"] = mrs
	metrics["mrs_slope"] = slope

	if adxVal < g.cfg.MinADX || slope < g.cfg.MinMansfieldSlope {
		return contracts.SoftFail(
			fmt.Sprintf("coiling spring: ADX %.1f (min %.1f), MRS slope %.4f (min %.4f)",
				adxVal, g.cfg.MinADX, slope, g.cfg.MinMansfieldSlope),
			metrics,
		)
	}

	return contracts.Pass(
		fmt.Sprintf("Stage 2 confirmed: ADX %.1f, MRS %.2f, slope %.4f", adxVal, mrs, slope),
		metrics,
	)
}
