package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// Repository persists scan reports. The report is the compliance record:
// candidates and the full rationale trail are stored verbatim as JSON and
// never rewritten.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReport stores one scan report. Session IDs are unique; replaying a
// session is a conflict, not an update, because the trail is append-only.
func (r *Repository) SaveReport(ctx context.Context, report *contracts.ScanReport) error {
	stageCounts, err := json.Marshal(report.StageCounts)
	if err != nil {
		return fmt.Errorf("marshal stage counts: %w", err)
	}
	candidates, err := json.Marshal(report.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	rationale, err := json.Marshal(report.Trail)
	if err != nil {
		return fmt.Errorf("marshal rationale: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO scanner.scan_reports (
			session_id, scan_date, scanned_at, total_scanned,
			stage_counts, candidates, rationale
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		report.SessionID,
		report.Timestamp.Format("2006-01-02"),
		report.Timestamp,
		report.TotalScanned,
		stageCounts, candidates, rationale,
	)
	if err != nil {
		return fmt.Errorf("save scan report %s: %w", report.SessionID, err)
	}
	return nil
}

// GetReport retrieves one scan report by session ID
func (r *Repository) GetReport(ctx context.Context, sessionID string) (*contracts.ScanReport, error) {
	return r.queryReport(ctx, `
		SELECT session_id, scanned_at, total_scanned, stage_counts, candidates, rationale
		FROM scanner.scan_reports
		WHERE session_id = $1
	`, sessionID)
}

// GetLatestReport retrieves the most recent scan report
func (r *Repository) GetLatestReport(ctx context.Context) (*contracts.ScanReport, error) {
	return r.queryReport(ctx, `
		SELECT session_id, scanned_at, total_scanned, stage_counts, candidates, rationale
		FROM scanner.scan_reports
		ORDER BY scanned_at DESC
		LIMIT 1
	`)
}

func (r *Repository) queryReport(ctx context.Context, query string, args ...interface{}) (*contracts.ScanReport, error) {
	var (
		report      contracts.ScanReport
		stageCounts []byte
		candidates  []byte
		rationale   []byte
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&report.SessionID, &report.Timestamp, &report.TotalScanned,
		&stageCounts, &candidates, &rationale,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan report: %w", err)
	}

	if err := json.Unmarshal(stageCounts, &report.StageCounts); err != nil {
		return nil, fmt.Errorf("unmarshal stage counts: %w", err)
	}
	if err := json.Unmarshal(candidates, &report.Candidates); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}
	if err := json.Unmarshal(rationale, &report.Trail); err != nil {
		return nil, fmt.Errorf("unmarshal rationale: %w", err)
	}

	return &report, nil
}

// SpringSighting is one coiling-spring candidate appearance in a scan
type SpringSighting struct {
	Ticker   string    `json:"ticker"`
	Name     string    `json:"name"`
	Sector   string    `json:"sector"`
	ScanDate time.Time `json:"scan_date"`
}

// RecentSpringSightings returns every coiling-spring appearance since the
// given date, one row per (ticker, scan date). The weekly digest
// aggregates these into the recurrence watchlist.
func (r *Repository) RecentSpringSightings(ctx context.Context, since time.Time) ([]SpringSighting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT
			c->>'ticker',
			COALESCE(c->>'name', ''),
			COALESCE(c->>'sector', ''),
			scan_date
		FROM scanner.scan_reports,
			jsonb_array_elements(candidates) AS c
		WHERE scan_date >= $1
		  AND c->>'status' = $2
		ORDER BY scan_date ASC
	`, since.Format("2006-01-02"), string(contracts.StatusCoilingSpring))
	if err != nil {
		return nil, fmt.Errorf("query spring sightings: %w", err)
	}
	defer rows.Close()

	var sightings []SpringSighting
	for rows.Next() {
		var s SpringSighting
		if err := rows.Scan(&s.Ticker, &s.Name, &s.Sector, &s.ScanDate); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}

	return sightings, nil
}

// StageCountsSince returns the per-gate survivor counts of every scan
// since the given date
func (r *Repository) StageCountsSince(ctx context.Context, since time.Time) ([]map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stage_counts
		FROM scanner.scan_reports
		WHERE scan_date >= $1
		ORDER BY scanned_at ASC
	`, since.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query stage counts: %w", err)
	}
	defer rows.Close()

	var all []map[string]int
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan stage counts: %w", err)
		}
		counts := make(map[string]int)
		if err := json.Unmarshal(raw, &counts); err != nil {
			return nil, fmt.Errorf("unmarshal stage counts: %w", err)
		}
		all = append(all, counts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage counts: %w", err)
	}

	return all, nil
}
