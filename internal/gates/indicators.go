package gates

import (
	"fmt"
	"math"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// Indicator math shared by the gates. All functions are pure, operate on
// chronological series, and return contracts sentinel errors on short or
// degenerate input so callers can turn them into per-instrument fails.

// closes extracts the close column
func closes(series []contracts.Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Close
	}
	return out
}

// sma returns the simple moving average of the window ending at index end
// (inclusive). end is 0-based.
func sma(values []float64, end, window int) (float64, error) {
	if window <= 0 || end+1 < window || end >= len(values) {
		return 0, contracts.ErrInsufficientHistory
	}
	sum := 0.0
	for i := end - window + 1; i <= end; i++ {
		sum += values[i]
	}
	return sum / float64(window), nil
}

// rollingSpread returns the mean of (High-Low)/Close over the trailing
// window sessions. This is the liquidity proxy Gate 1 tests.
func rollingSpread(series []contracts.Candle, window int) (float64, error) {
	if len(series) < window {
		return 0, contracts.ErrInsufficientHistory
	}
	sum := 0.0
	for _, c := range series[len(series)-window:] {
		if c.Close <= 0 {
			return 0, fmt.Errorf("%w: non-positive close", contracts.ErrCompute)
		}
		sum += (c.High - c.Low) / c.Close
	}
	return sum / float64(window), nil
}

// atr returns the Wilder-smoothed Average True Range over the given period.
// Requires period+1 candles.
func atr(series []contracts.Candle, period int) (float64, error) {
	if len(series) < period+1 {
		return 0, contracts.ErrInsufficientHistory
	}

	trs := trueRanges(series)

	// Seed with the simple mean of the first period, then Wilder smoothing
	start := len(trs) - period*2
	if start < 0 {
		start = 0
	}
	seedEnd := start + period
	if seedEnd > len(trs) {
		seedEnd = len(trs)
	}

	sum := 0.0
	for _, tr := range trs[start:seedEnd] {
		sum += tr
	}
	value := sum / float64(seedEnd-start)

	for _, tr := range trs[seedEnd:] {
		value = (value*float64(period-1) + tr) / float64(period)
	}

	return value, nil
}

func trueRanges(series []contracts.Candle) []float64 {
	trs := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		hl := series[i].High - series[i].Low
		hc := math.Abs(series[i].High - series[i-1].Close)
		lc := math.Abs(series[i].Low - series[i-1].Close)
		trs = append(trs, math.Max(hl, math.Max(hc, lc)))
	}
	return trs
}

// adx returns the Average Directional Index over the given period using
// Wilder smoothing. Requires at least 2*period+1 candles. A perfectly flat
// series yields 0 (no directional movement at all).
func adx(series []contracts.Candle, period int) (float64, error) {
	if len(series) < 2*period+1 {
		return 0, contracts.ErrInsufficientHistory
	}

	var trSum, plusSum, minusSum float64
	var smTR, smPlus, smMinus float64
	var dxValues []float64

	for i := 1; i < len(series); i++ {
		upMove := series[i].High - series[i-1].High
		downMove := series[i-1].Low - series[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		hl := series[i].High - series[i].Low
		hc := math.Abs(series[i].High - series[i-1].Close)
		lc := math.Abs(series[i].Low - series[i-1].Close)
		tr := math.Max(hl, math.Max(hc, lc))

		if i <= period {
			// Seed the Wilder sums
			trSum += tr
			plusSum += plusDM
			minusSum += minusDM
			if i == period {
				smTR, smPlus, smMinus = trSum, plusSum, minusSum
			}
			continue
		}

		smTR = smTR - smTR/float64(period) + tr
		smPlus = smPlus - smPlus/float64(period) + plusDM
		smMinus = smMinus - smMinus/float64(period) + minusDM

		if smTR == 0 {
			dxValues = append(dxValues, 0)
			continue
		}

		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		sumDI := plusDI + minusDI
		if sumDI == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dxValues = append(dxValues, 100*math.Abs(plusDI-minusDI)/sumDI)
	}

	if len(dxValues) < period {
		return 0, contracts.ErrInsufficientHistory
	}

	// ADX = Wilder-smoothed DX
	sum := 0.0
	for _, dx := range dxValues[:period] {
		sum += dx
	}
	value := sum / float64(period)
	for _, dx := range dxValues[period:] {
		value = (value*float64(period-1) + dx) / float64(period)
	}

	return value, nil
}

// mrsSlopeWindow is the trailing segment the RS slope is measured over
const mrsSlopeWindow = 10

// mansfieldRS returns the Mansfield Relative Strength of the instrument
// against the benchmark (zero-line form: percent above/below the smoothed
// price ratio) plus the slope of its trailing segment. Series are aligned
// from the most recent session backwards.
func mansfieldRS(instrument, benchmark []float64, lookbackWeeks int) (mrs, slope float64, err error) {
	n := len(instrument)
	if len(benchmark) < n {
		n = len(benchmark)
	}

	smooth := lookbackWeeks * 5 // weeks to trading days
	if n < mrsSlopeWindow+2 {
		return 0, 0, contracts.ErrInsufficientHistory
	}
	if smooth > n-mrsSlopeWindow {
		smooth = n - mrsSlopeWindow
	}
	if smooth < 2 {
		return 0, 0, contracts.ErrInsufficientHistory
	}

	inst := instrument[len(instrument)-n:]
	bench := benchmark[len(benchmark)-n:]

	ratio := make([]float64, n)
	for i := 0; i < n; i++ {
		if bench[i] <= 0 {
			return 0, 0, fmt.Errorf("%w: non-positive benchmark close", contracts.ErrCompute)
		}
		ratio[i] = inst[i] / bench[i]
	}

	segment := make([]float64, 0, mrsSlopeWindow)
	for end := n - mrsSlopeWindow; end < n; end++ {
		base, serr := sma(ratio, end, smooth)
		if serr != nil {
			return 0, 0, serr
		}
		if base == 0 {
			return 0, 0, fmt.Errorf("%w: zero ratio baseline", contracts.ErrCompute)
		}
		segment = append(segment, (ratio[end]/base-1)*100)
	}

	return segment[len(segment)-1], linregSlope(segment), nil
}

// linregSlope returns the least-squares slope of y over x = 0..n-1
func linregSlope(y []float64) float64 {
	n := float64(len(y))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}

// detectPattern labels the consolidation structure of the trailing price
// action. A volatility contraction (recent range tightening to under half
// of the prior range while holding near highs) reads as a tight coil and
// maps to the short swing holding period downstream.
func detectPattern(series []contracts.Candle) string {
	const recent, prior = 10, 30
	if len(series) < prior {
		return "Stage 2 Uptrend"
	}

	recentHigh, recentLow := rangeOf(series[len(series)-recent:])
	priorHigh, priorLow := rangeOf(series[len(series)-prior : len(series)-recent])

	last := series[len(series)-1].Close
	if last <= 0 || priorHigh <= priorLow {
		return "Stage 2 Uptrend"
	}

	recentRange := (recentHigh - recentLow) / last
	priorRange := (priorHigh - priorLow) / last

	if priorRange > 0 && recentRange <= priorRange*0.5 && last >= recentHigh*0.97 {
		return "VCP Tight Consolidation"
	}
	return "Stage 2 Uptrend"
}

func rangeOf(series []contracts.Candle) (high, low float64) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, c := range series {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}
