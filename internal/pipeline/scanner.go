package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/gates"
	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// Scanner coordinates the five-gate screening pipeline over one immutable
// batch. The pipeline is strictly linear and short-circuits to DONE the
// moment a gate leaves no survivors; the rationale trail still carries an
// entry for every instrument each gate evaluated. The Scanner itself does
// no I/O: the batch arrives fully loaded and the report is handed back
// for persistence.
type Scanner struct {
	spread        *gates.SpreadGate
	fundamentals  *gates.FundamentalsGate
	institutional *gates.InstitutionalGate
	technicals    *gates.TechnicalsGate
	execution     *gates.ExecutionGate

	logger *logger.Logger
}

// New wires the gates from configuration
func New(cfg config.GatesConfig, workers int, log *logger.Logger) *Scanner {
	return &Scanner{
		spread:        gates.NewSpreadGate(cfg.Gate1, workers, log),
		fundamentals:  gates.NewFundamentalsGate(cfg.Gate2, workers, log),
		institutional: gates.NewInstitutionalGate(cfg.Gate2B, workers, log),
		technicals:    gates.NewTechnicalsGate(cfg.Gate3, workers, log),
		execution:     gates.NewExecutionGate(cfg.Gate4, workers, log),
		logger:        log.WithField("component", "pipeline"),
	}
}

// GenerateSessionID returns a unique scan session identifier
func GenerateSessionID() string {
	return fmt.Sprintf("scan_%s", time.Now().Format("20060102_150405"))
}

// Scan runs the full gate sequence over the batch. An empty batch yields
// an empty report, not an error: a holiday is not a failure. Progress may
// be nil.
func (s *Scanner) Scan(ctx context.Context, batch *contracts.Batch, sessionID string, progress contracts.ProgressFunc) (*contracts.ScanReport, error) {
	startTime := time.Now()
	notify := func(message string, pct int) {
		if progress != nil {
			progress(message, pct)
		}
	}

	report := &contracts.ScanReport{
		SessionID:    sessionID,
		Timestamp:    startTime,
		TotalScanned: batch.Count(),
		StageCounts:  make(map[string]int),
		Candidates:   []contracts.Candidate{},
		Trail:        contracts.NewTrail(),
	}

	s.logger.WithFields(map[string]interface{}{
		"session_id":  sessionID,
		"instruments": batch.Count(),
	}).Info("Starting scan")

	if batch.Count() == 0 {
		s.logger.Warn("Empty batch; nothing to scan")
		notify("No instruments to scan", 100)
		return report, nil
	}

	survivors := batch.Tickers()

	// Gate sequence in pipeline order. Gate 3 results are kept aside
	// because its soft fails become the coiling-spring watchlist.
	var technicalResults map[string]contracts.GateResult

	sequence := []struct {
		stage contracts.Stage
		gate  contracts.Gate
		pct   int
	}{
		{contracts.StageG1, s.spread, 20},
		{contracts.StageG2, s.fundamentals, 40},
		{contracts.StageG2B, s.institutional, 55},
		{contracts.StageG3, s.technicals, 75},
		{contracts.StageG4, s.execution, 90},
	}

	var springs []string
	for _, step := range sequence {
		notify(fmt.Sprintf("Running %s", step.gate.Name()), step.pct)

		next, results, err := step.gate.Run(ctx, batch, survivors)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", step.gate.Name(), err)
		}

		report.Trail.Merge(step.gate.Name(), results)
		report.StageCounts[step.gate.Name()] = len(next)

		if step.stage == contracts.StageG3 {
			technicalResults = results
			springs = softFails(results)
		}

		survivors = next
		if len(survivors) == 0 {
			s.logger.WithField("stage", step.stage.String()).Info("No survivors; short-circuiting")
			break
		}
	}

	report.Candidates = s.assembleCandidates(batch, survivors, springs, technicalResults, report.Trail)

	notify("Scan complete", 100)
	s.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"buys":       report.BuyCount(),
		"springs":    len(report.Watchlist()),
		"duration":   time.Since(startTime).Seconds(),
	}).Info("Scan completed")

	return report, nil
}

// softFails returns the tickers a gate soft-failed, sorted
func softFails(results map[string]contracts.GateResult) []string {
	out := make([]string, 0)
	for ticker, r := range results {
		if r.Verdict == contracts.VerdictSoftFail {
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out
}

// assembleCandidates builds the final candidate list: full passers as BUY,
// Gate 3 soft fails as COILING_SPRING. Both carry trade plans; a spring's
// plan is the one it would trade on breakout confirmation.
func (s *Scanner) assembleCandidates(batch *contracts.Batch, buys, springs []string, technicalResults map[string]contracts.GateResult, trail contracts.Trail) []contracts.Candidate {
	candidates := make([]contracts.Candidate, 0, len(buys)+len(springs))

	for _, ticker := range buys {
		reason := ""
		if r, ok := trail.Get(ticker, contracts.GateNameExecution); ok {
			reason = r.Reason
		}
		candidates = append(candidates, s.buildCandidate(batch, ticker, contracts.StatusBuy, technicalResults[ticker], reason))
	}
	for _, ticker := range springs {
		candidates = append(candidates, s.buildCandidate(batch, ticker, contracts.StatusCoilingSpring, technicalResults[ticker], technicalResults[ticker].Reason))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Status != candidates[j].Status {
			return candidates[i].Status == contracts.StatusBuy
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})
	return candidates
}

func (s *Scanner) buildCandidate(batch *contracts.Batch, ticker string, status contracts.CandidateStatus, technical contracts.GateResult, reason string) contracts.Candidate {
	in, _ := batch.Get(ticker)

	c := contracts.Candidate{
		Ticker:  ticker,
		Status:  status,
		Name:    in.Name,
		Sector:  in.SectorOrUnknown(),
		CapTier: in.CapTier.Normalize(),
		Pattern: gates.PatternFor(in.Series),
		Reason:  reason,
	}
	if technical.Metrics != nil {
		c.ADX = technical.Metrics["adx"]
		c.MRS = technical.Metrics["mrs"]
		c.MRSSlope = technical.Metrics["mrs_slope"]
	}

	if plan, err := s.execution.TradePlan(in); err == nil {
		c.Trade = *plan
	} else {
		s.logger.WithError(err).WithField("ticker", ticker).Warn("Trade plan unavailable for candidate")
	}

	return c
}
