package contracts

import (
	"context"
	"time"
)

// Gate is one filtering stage. Run evaluates only the given survivors,
// returns the narrowed survivor set plus a result for every evaluated
// ticker, and never mutates the batch. Survivor order is deterministic
// (sorted) regardless of internal parallelism.
type Gate interface {
	Name() string
	Run(ctx context.Context, batch *Batch, survivors []string) ([]string, map[string]GateResult, error)
}

// BatchProvider assembles the immutable per-scan snapshot. Implementations
// own all network and disk I/O; the pipeline never does any.
type BatchProvider interface {
	LoadBatch(ctx context.Context, date time.Time, fullUniverse bool) (*Batch, error)
}

// AuditWriter persists a scan report as the compliance record
type AuditWriter interface {
	WriteScan(ctx context.Context, report *ScanReport) error
}

// ProgressFunc receives human-readable scan progress, 0-100
type ProgressFunc func(message string, pct int)
