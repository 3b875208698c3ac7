package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/adi-verma/quantscanner/internal/audit"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// attritionDefaultDays is the default lookback for the attrition view
const attritionDefaultDays = 30

type watchlistSource interface {
	WeeklyWatchlist(ctx context.Context, asOf time.Time) ([]audit.WatchlistEntry, error)
	Attrition(ctx context.Context, since time.Time) (*audit.AttritionReport, error)
}

// WatchlistHandler serves the recurrence watchlist and scan history views
type WatchlistHandler struct {
	analyzer watchlistSource
	logger   *logger.Logger
}

// NewWatchlistHandler creates a watchlist handler
func NewWatchlistHandler(analyzer watchlistSource, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{analyzer: analyzer, logger: log}
}

// GetWeekly returns the recurring coiling-spring watchlist
// GET /api/watchlist/weekly
func (h *WatchlistHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	entries, err := h.analyzer.WeeklyWatchlist(r.Context(), time.Now())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build weekly watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to build watchlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetAttrition returns the per-gate survivor averages
// GET /api/scan/attrition
func (h *WatchlistHandler) GetAttrition(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -attritionDefaultDays)

	report, err := h.analyzer.Attrition(r.Context(), since)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute attrition")
		respondError(w, http.StatusInternalServerError, "Failed to compute attrition")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
