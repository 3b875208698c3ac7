package gates

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// SpreadGate (Gate 1) rejects instruments whose intraday range is anomalous
// relative to sector peers. Two passes: first every instrument's rolling
// average (High-Low)/Close is computed and reduced into per-sector mean and
// standard deviation, then each instrument is tested against its sector's
// z-score plus an absolute cap. The sector table is built once per scan and
// read-only afterwards.
type SpreadGate struct {
	cfg     config.Gate1Config
	workers int
	logger  *logger.Logger
}

// NewSpreadGate creates Gate 1
func NewSpreadGate(cfg config.Gate1Config, workers int, log *logger.Logger) *SpreadGate {
	return &SpreadGate{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("gate", contracts.GateNameSpread),
	}
}

// Name returns the trail key for this gate
func (g *SpreadGate) Name() string {
	return contracts.GateNameSpread
}

// sectorStats is the immutable per-sector aggregate from pass one
type sectorStats struct {
	mean  float64
	std   float64
	count int
}

type spreadValue struct {
	value float64
	err   error
}

// Run evaluates the spread quality of every survivor
func (g *SpreadGate) Run(ctx context.Context, batch *contracts.Batch, survivors []string) ([]string, map[string]contracts.GateResult, error) {
	// Pass 1: per-instrument rolling spread, fanned out over the pool.
	// The sector reduction below is the only cross-instrument dependency
	// in the whole pipeline, hence the explicit join here.
	spreads, err := parallelMap(ctx, survivors, g.workers, func(ticker string) spreadValue {
		in, ok := batch.Get(ticker)
		if !ok {
			return spreadValue{err: contracts.ErrInsufficientHistory}
		}
		v, err := rollingSpread(in.Series, g.cfg.RollingWindow)
		return spreadValue{value: v, err: err}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("spread pass aborted: %w", err)
	}

	stats := g.reduceSectors(batch, survivors, spreads)

	// Pass 2: per-instrument verdicts against the sector table
	results := make(map[string]contracts.GateResult, len(survivors))
	for _, ticker := range survivors {
		results[ticker] = g.evaluate(batch, ticker, spreads[ticker], stats)
	}

	passed := survivorsOf(results)
	g.logger.WithFields(map[string]interface{}{
		"input":    len(survivors),
		"passed":   len(passed),
		"rejected": len(survivors) - len(passed),
		"sectors":  len(stats),
	}).Info("Spread gate completed")

	return passed, results, nil
}

// reduceSectors groups valid spreads by sector and computes mean/std
func (g *SpreadGate) reduceSectors(batch *contracts.Batch, survivors []string, spreads map[string]spreadValue) map[string]sectorStats {
	bySector := make(map[string][]float64)
	for _, ticker := range survivors {
		sv := spreads[ticker]
		if sv.err != nil {
			continue
		}
		in, ok := batch.Get(ticker)
		if !ok {
			continue
		}
		sector := in.SectorOrUnknown()
		bySector[sector] = append(bySector[sector], sv.value)
	}

	stats := make(map[string]sectorStats, len(bySector))
	for sector, values := range bySector {
		mean := 0.0
		for _, v := range values {
			mean += v
		}
		mean /= float64(len(values))

		variance := 0.0
		for _, v := range values {
			variance += (v - mean) * (v - mean)
		}
		std := 0.0
		if len(values) > 1 {
			std = math.Sqrt(variance / float64(len(values)-1))
		}

		stats[sector] = sectorStats{mean: mean, std: std, count: len(values)}
	}
	return stats
}

func (g *SpreadGate) evaluate(batch *contracts.Batch, ticker string, sv spreadValue, stats map[string]sectorStats) contracts.GateResult {
	if sv.err != nil {
		if errors.Is(sv.err, contracts.ErrInsufficientHistory) {
			return contracts.Fail("insufficient history", nil)
		}
		return contracts.Fail(fmt.Sprintf("spread computation failed: %v", sv.err), nil)
	}

	in, _ := batch.Get(ticker)
	sector := in.SectorOrUnknown()
	metrics := map[string]float64{"spread": sv.value}

	// Absolute cap applies to everyone. A spread at the cap is already
	// untradeable, so the bound is exclusive.
	if sv.value >= g.cfg.MaxAbsSpread {
		return contracts.Fail(
			fmt.Sprintf("spread %.4f breaches absolute cap %.2f", sv.value, g.cfg.MaxAbsSpread),
			metrics,
		)
	}

	st, ok := stats[sector]

	// Unknown sector forms its own degenerate group: no peer set to
	// z-score against, so only the absolute cap applies.
	if sector == contracts.SectorUnknown {
		return contracts.Pass(
			fmt.Sprintf("unsectored instrument exempt from sector z-test; spread %.4f within absolute cap %.2f", sv.value, g.cfg.MaxAbsSpread),
			metrics,
		)
	}

	if err := usableGroup(st, ok); errors.Is(err, contracts.ErrDegenerateGroup) {
		return contracts.Pass(
			fmt.Sprintf("sector %q degenerate (%d peers); spread %.4f within absolute cap %.2f", sector, st.count, sv.value, g.cfg.MaxAbsSpread),
			metrics,
		)
	}

	z := zScore(sv.value, st)
	metrics["spread_z"] = z
	metrics["sector_mean"] = st.mean
	metrics["sector_std"] = st.std

	if z > g.cfg.MaxSpreadZScore {
		return contracts.Fail(
			fmt.Sprintf("spread z-score %.2f above sector limit %.2f (sector %q)", z, g.cfg.MaxSpreadZScore, sector),
			metrics,
		)
	}

	return contracts.Pass(
		fmt.Sprintf("spread %.4f, z-score %.2f within sector %q norm", sv.value, z, sector),
		metrics,
	)
}

// usableGroup reports whether a sector aggregate can back a z-score.
// Fewer than two peers, or a deviation collapsed to zero, is
// ErrDegenerateGroup: evaluation falls back to the absolute cap alone.
func usableGroup(st sectorStats, ok bool) error {
	if !ok || st.count < 2 || st.std < 1e-9 {
		return contracts.ErrDegenerateGroup
	}
	return nil
}

func zScore(spread float64, st sectorStats) float64 {
	return (spread - st.mean) / st.std
}
