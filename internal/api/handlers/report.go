package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

type reportStore interface {
	GetReport(ctx context.Context, sessionID string) (*contracts.ScanReport, error)
	GetLatestReport(ctx context.Context) (*contracts.ScanReport, error)
}

// ReportHandler serves persisted scan reports
type ReportHandler struct {
	store  reportStore
	logger *logger.Logger
}

// NewReportHandler creates a report handler
func NewReportHandler(store reportStore, log *logger.Logger) *ReportHandler {
	return &ReportHandler{store: store, logger: log}
}

// GetLatest returns the most recent scan report
// GET /api/scan/latest
func (h *ReportHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetLatestReport(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "No scan report yet")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetBySession returns one scan report by session ID
// GET /api/scan/{session_id}
func (h *ReportHandler) GetBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	report, err := h.store.GetReport(r.Context(), sessionID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "Unknown session: "+sessionID)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
