package audit

import (
	"context"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

type reportStore interface {
	SaveReport(ctx context.Context, report *contracts.ScanReport) error
}

// Writer persists scan reports on behalf of the pipeline. It implements
// contracts.AuditWriter.
type Writer struct {
	store  reportStore
	logger *logger.Logger
}

// NewWriter creates an audit writer over the repository
func NewWriter(repository *Repository, log *logger.Logger) *Writer {
	return &Writer{
		store:  repository,
		logger: log.WithField("component", "audit"),
	}
}

// WriteScan persists one scan report
func (w *Writer) WriteScan(ctx context.Context, report *contracts.ScanReport) error {
	if err := w.store.SaveReport(ctx, report); err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"session_id": report.SessionID,
		"scanned":    report.TotalScanned,
		"buys":       report.BuyCount(),
		"watchlist":  len(report.Watchlist()),
	}).Info("Scan report persisted")
	return nil
}
