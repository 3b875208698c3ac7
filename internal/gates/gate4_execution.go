package gates

import (
	"context"
	"errors"
	"fmt"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// ExecutionGate (Gate 4) is the final timing check: today's participation
// must confirm the setup. The raw volume bar is compared against a
// session-prorated expectation (average daily volume scaled by how much
// of the session has elapsed, dampened by a proration factor), so an
// intraday scan does not demand a full day's volume at 1pm. Survivors get
// an ATR-based trade plan; a plan whose stop lands at or above the entry
// is rejected as unexecutable.
type ExecutionGate struct {
	cfg     config.Gate4Config
	workers int
	logger  *logger.Logger
}

// NewExecutionGate creates Gate 4
func NewExecutionGate(cfg config.Gate4Config, workers int, log *logger.Logger) *ExecutionGate {
	return &ExecutionGate{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("gate", contracts.GateNameExecution),
	}
}

// Name returns the trail key for this gate
func (g *ExecutionGate) Name() string {
	return contracts.GateNameExecution
}

// Run evaluates execution timing for every survivor
func (g *ExecutionGate) Run(ctx context.Context, batch *contracts.Batch, survivors []string) ([]string, map[string]contracts.GateResult, error) {
	elapsed := batch.ElapsedSessionMinutes
	if elapsed <= 0 || elapsed > float64(g.cfg.MarketOpenMinutes) {
		elapsed = float64(g.cfg.MarketOpenMinutes)
	}

	results, err := parallelMap(ctx, survivors, g.workers, func(ticker string) contracts.GateResult {
		in, ok := batch.Get(ticker)
		if !ok {
			return contracts.Fail("instrument missing from batch", nil)
		}
		return g.evaluate(in, elapsed)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("execution pass aborted: %w", err)
	}

	passed := survivorsOf(results)
	g.logger.WithFields(map[string]interface{}{
		"input":           len(survivors),
		"passed":          len(passed),
		"elapsed_minutes": elapsed,
	}).Info("Execution gate completed")

	return passed, results, nil
}

func (g *ExecutionGate) evaluate(in *contracts.Instrument, elapsedMinutes float64) contracts.GateResult {
	// Need the volume average window plus today's bar
	if len(in.Series) < g.cfg.VolAvgDays+1 {
		return contracts.Fail("insufficient history", nil)
	}

	today := in.Series[len(in.Series)-1]
	prior := in.Series[len(in.Series)-1-g.cfg.VolAvgDays : len(in.Series)-1]

	avgVol := 0.0
	for _, c := range prior {
		avgVol += c.Volume
	}
	avgVol /= float64(g.cfg.VolAvgDays)

	expected := avgVol * (elapsedMinutes / float64(g.cfg.MarketOpenMinutes)) * g.cfg.VolProrateFactor

	metrics := map[string]float64{
		"volume":          today.Volume,
		"avg_volume":      avgVol,
		"expected_volume": expected,
	}

	if avgVol <= 0 {
		return contracts.Fail("no traded volume over averaging window", metrics)
	}
	if today.Volume < expected {
		return contracts.Fail(
			fmt.Sprintf("volume %.0f below prorated expectation %.0f (%.0f%% of session elapsed)",
				today.Volume, expected, 100*elapsedMinutes/float64(g.cfg.MarketOpenMinutes)),
			metrics,
		)
	}

	plan, err := g.TradePlan(in)
	if err != nil {
		return contracts.Fail(fmt.Sprintf("trade plan rejected: %v", err), metrics)
	}

	metrics["entry"] = plan.Entry
	metrics["stop"] = plan.Stop
	metrics["target"] = plan.Target
	metrics["risk_reward"] = plan.RiskReward

	return contracts.Pass(
		fmt.Sprintf("volume confirmed (%.0f vs expected %.0f); entry %.2f, stop %.2f, target %.2f",
			today.Volume, expected, plan.Entry, plan.Stop, plan.Target),
		metrics,
	)
}

// TradePlan builds the ATR-based entry/stop/target for an instrument.
// Exposed so the pipeline can also plan coiling springs that skip this
// gate's volume check. The reward leg is fixed at MinRRRatio times the
// risk leg, so the plan's risk-reward equals the configured ratio by
// construction.
func (g *ExecutionGate) TradePlan(in *contracts.Instrument) (*contracts.TradePlan, error) {
	entry := in.LastClose()
	if entry <= 0 {
		return nil, fmt.Errorf("%w: no usable close", contracts.ErrCompute)
	}

	atrVal, err := atr(in.Series, g.cfg.ATRPeriod)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientHistory) {
			return nil, contracts.ErrInsufficientHistory
		}
		return nil, err
	}

	stop := entry - g.cfg.ATRStopMultiplier*atrVal
	if stop >= entry {
		return nil, fmt.Errorf("%w: stop %.2f at or above entry %.2f (degenerate ATR)", contracts.ErrCompute, stop, entry)
	}

	risk := entry - stop
	target := entry + g.cfg.MinRRRatio*risk

	period := contracts.PeriodPositional
	if detectPattern(in.Series) == PatternVCP {
		period = contracts.PeriodSwing
	}

	return &contracts.TradePlan{
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Period:     period,
		RiskReward: g.cfg.MinRRRatio,
	}, nil
}
