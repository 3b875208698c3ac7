package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adi-verma/quantscanner/pkg/logger"
)

const (
	// watchlistLookbackDays is the recurrence window for the weekly digest
	watchlistLookbackDays = 7

	// minAppearances is how many scans a coiling spring must recur in
	// before it earns a watchlist slot. One-off springs are noise; a
	// ticker that keeps showing up is a base worth watching.
	minAppearances = 3
)

type historyStore interface {
	RecentSpringSightings(ctx context.Context, since time.Time) ([]SpringSighting, error)
	StageCountsSince(ctx context.Context, since time.Time) ([]map[string]int, error)
}

// Analyzer derives the weekly digest views from the persisted scan history
type Analyzer struct {
	store  historyStore
	logger *logger.Logger
}

// NewAnalyzer creates an analyzer over the repository
func NewAnalyzer(repository *Repository, log *logger.Logger) *Analyzer {
	return &Analyzer{
		store:  repository,
		logger: log.WithField("component", "audit"),
	}
}

// WatchlistEntry is one recurring coiling-spring candidate
type WatchlistEntry struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name,omitempty"`
	Sector      string    `json:"sector"`
	Appearances int       `json:"appearances"`
	LastSeen    time.Time `json:"last_seen"`
}

// WeeklyWatchlist returns the coiling springs that recurred across enough
// scans in the trailing week, most persistent first
func (a *Analyzer) WeeklyWatchlist(ctx context.Context, asOf time.Time) ([]WatchlistEntry, error) {
	since := asOf.AddDate(0, 0, -watchlistLookbackDays)
	sightings, err := a.store.RecentSpringSightings(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("weekly watchlist: %w", err)
	}

	entries := aggregateSightings(sightings, minAppearances)

	a.logger.WithFields(map[string]interface{}{
		"as_of":     asOf.Format("2006-01-02"),
		"sightings": len(sightings),
		"entries":   len(entries),
	}).Info("Weekly watchlist built")
	return entries, nil
}

// aggregateSightings collapses per-scan sightings into recurrence entries.
// A ticker counts once per scan date regardless of how many sessions ran
// that day.
func aggregateSightings(sightings []SpringSighting, minCount int) []WatchlistEntry {
	type acc struct {
		entry WatchlistEntry
		dates map[string]bool
	}

	byTicker := make(map[string]*acc)
	for _, s := range sightings {
		a, ok := byTicker[s.Ticker]
		if !ok {
			a = &acc{
				entry: WatchlistEntry{Ticker: s.Ticker, Name: s.Name, Sector: s.Sector},
				dates: make(map[string]bool),
			}
			byTicker[s.Ticker] = a
		}
		a.dates[s.ScanDate.Format("2006-01-02")] = true
		if s.ScanDate.After(a.entry.LastSeen) {
			a.entry.LastSeen = s.ScanDate
		}
	}

	entries := make([]WatchlistEntry, 0, len(byTicker))
	for _, a := range byTicker {
		a.entry.Appearances = len(a.dates)
		if a.entry.Appearances >= minCount {
			entries = append(entries, a.entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Appearances != entries[j].Appearances {
			return entries[i].Appearances > entries[j].Appearances
		}
		return entries[i].Ticker < entries[j].Ticker
	})
	return entries
}

// AttritionReport summarizes how hard each gate filters over a period
type AttritionReport struct {
	Scans        int                `json:"scans"`
	AvgSurvivors map[string]float64 `json:"avg_survivors"`
}

// Attrition averages the per-gate survivor counts of every scan since the
// given date. A gate whose average collapses relative to its predecessor
// is the binding constraint of the current market regime.
func (a *Analyzer) Attrition(ctx context.Context, since time.Time) (*AttritionReport, error) {
	counts, err := a.store.StageCountsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("attrition: %w", err)
	}

	report := &AttritionReport{
		Scans:        len(counts),
		AvgSurvivors: make(map[string]float64),
	}
	if len(counts) == 0 {
		return report, nil
	}

	totals := make(map[string]int)
	for _, scan := range counts {
		for gate, survivors := range scan {
			totals[gate] += survivors
		}
	}
	for gate, total := range totals {
		report.AvgSurvivors[gate] = float64(total) / float64(len(counts))
	}

	return report, nil
}
