package contracts

import "time"

// Verdict is the three-way outcome of one gate for one instrument.
// SoftFail marks the coiling-spring branch: structurally sound but lacking
// momentum confirmation, excluded from later gates yet not rejected.
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictSoftFail Verdict = "SOFT_FAIL"
	VerdictHardFail Verdict = "HARD_FAIL"
)

// GateResult records one gate's decision for one instrument. Created once,
// never mutated; the reason string is always populated, pass or fail, because
// the trail is the compliance audit record.
type GateResult struct {
	Passed  bool               `json:"passed"`
	Verdict Verdict            `json:"verdict"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Reason  string             `json:"reason"`
}

// Pass builds a passing result
func Pass(reason string, metrics map[string]float64) GateResult {
	return GateResult{Passed: true, Verdict: VerdictPass, Metrics: metrics, Reason: reason}
}

// Fail builds a hard-fail result
func Fail(reason string, metrics map[string]float64) GateResult {
	return GateResult{Passed: false, Verdict: VerdictHardFail, Metrics: metrics, Reason: reason}
}

// SoftFail builds a soft-fail result
func SoftFail(reason string, metrics map[string]float64) GateResult {
	return GateResult{Passed: false, Verdict: VerdictSoftFail, Metrics: metrics, Reason: reason}
}

// Trail is the accumulated rationale, keyed by ticker then gate name.
// It only ever grows: an entry, once written, is never overwritten. The
// nested structure is plain primitives and is persisted verbatim.
type Trail map[string]map[string]GateResult

// NewTrail returns an empty trail
func NewTrail() Trail {
	return make(Trail)
}

// Merge folds one gate's results into the trail. Existing entries win, so a
// replayed merge cannot rewrite history.
func (t Trail) Merge(gateName string, results map[string]GateResult) {
	for ticker, result := range results {
		if _, ok := t[ticker]; !ok {
			t[ticker] = make(map[string]GateResult)
		}
		if _, exists := t[ticker][gateName]; !exists {
			t[ticker][gateName] = result
		}
	}
}

// Get returns the recorded result for a ticker and gate
func (t Trail) Get(ticker, gateName string) (GateResult, bool) {
	gates, ok := t[ticker]
	if !ok {
		return GateResult{}, false
	}
	result, ok := gates[gateName]
	return result, ok
}

// Tickers returns the number of instruments with at least one entry
func (t Trail) Tickers() int {
	return len(t)
}

// CandidateStatus classifies final candidates
type CandidateStatus string

const (
	// StatusBuy cleared every gate including execution timing
	StatusBuy CandidateStatus = "BUY"

	// StatusCoilingSpring cleared Gate 2B but failed Gate 3 on trend
	// strength only (ADX or RS slope); retained on the watchlist
	StatusCoilingSpring CandidateStatus = "COILING_SPRING"
)

// Holding-period labels derived from the matched pattern
const (
	PeriodSwing      = "Swing (2-6 Weeks)"
	PeriodPositional = "Positional (1-3 Months)"
)

// TradePlan is the entry/stop/target metadata computed for every
// Gate 2B survivor
type TradePlan struct {
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	Target     float64 `json:"target"`
	Period     string  `json:"period"`
	RiskReward float64 `json:"risk_reward"`
}

// Candidate is one actionable scan outcome
type Candidate struct {
	Ticker  string          `json:"ticker"`
	Status  CandidateStatus `json:"status"`
	Name    string          `json:"name,omitempty"`
	Sector  string          `json:"sector"`
	CapTier CapTier         `json:"cap_tier"`

	ADX      float64 `json:"adx,omitempty"`
	MRS      float64 `json:"mrs,omitempty"`
	MRSSlope float64 `json:"mrs_slope,omitempty"`
	Pattern  string  `json:"pattern,omitempty"`
	Reason   string  `json:"reason,omitempty"`

	Trade TradePlan `json:"trade"`
}

// ScanReport is the full output of one pipeline run: the ordered candidate
// list plus the complete rationale trail for every instrument that entered
// Gate 1. Persisted as-is by the audit layer.
type ScanReport struct {
	SessionID    string         `json:"session_id"`
	Timestamp    time.Time      `json:"timestamp"`
	TotalScanned int            `json:"total_scanned"`
	StageCounts  map[string]int `json:"stage_counts"`
	Candidates   []Candidate    `json:"candidates"`
	Trail        Trail          `json:"rationale"`
}

// BuyCount returns the number of BUY candidates
func (r *ScanReport) BuyCount() int {
	n := 0
	for _, c := range r.Candidates {
		if c.Status == StatusBuy {
			n++
		}
	}
	return n
}

// Watchlist returns only the coiling-spring candidates
func (r *ScanReport) Watchlist() []Candidate {
	springs := make([]Candidate, 0)
	for _, c := range r.Candidates {
		if c.Status == StatusCoilingSpring {
			springs = append(springs, c)
		}
	}
	return springs
}
