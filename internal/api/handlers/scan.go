package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/adi-verma/quantscanner/internal/api/ws"
	"github.com/adi-verma/quantscanner/internal/contracts"
	"github.com/adi-verma/quantscanner/internal/pipeline"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// scanTimeout bounds an API-triggered scan, batch loading included
const scanTimeout = 30 * time.Minute

// ScanHandler triggers on-demand scans
type ScanHandler struct {
	provider contracts.BatchProvider
	scanner  *pipeline.Scanner
	audit    contracts.AuditWriter
	hub      *ws.Hub
	logger   *logger.Logger

	// running guards against concurrent scans; the pipeline itself is
	// stateless but the data layer should not be hammered twice
	running atomic.Bool
}

// NewScanHandler creates a scan handler
func NewScanHandler(provider contracts.BatchProvider, scanner *pipeline.Scanner, audit contracts.AuditWriter, hub *ws.Hub, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		provider: provider,
		scanner:  scanner,
		audit:    audit,
		hub:      hub,
		logger:   log,
	}
}

// ScanRequest is the trigger payload
type ScanRequest struct {
	FullUniverse bool `json:"full_universe"`
	DryRun       bool `json:"dry_run"` // skip report persistence
}

// Trigger starts a scan in the background and returns the session ID.
// Progress streams over the WebSocket hub.
// POST /api/scan
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if !h.running.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "A scan is already running")
		return
	}

	sessionID := pipeline.GenerateSessionID()
	go h.runScan(sessionID, req)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id":    sessionID,
		"full_universe": req.FullUniverse,
		"dry_run":       req.DryRun,
	})
}

// runScan executes the scan outside the request lifecycle
func (h *ScanHandler) runScan(sessionID string, req ScanRequest) {
	defer h.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	progress := func(message string, pct int) {
		h.hub.Broadcast(ws.ProgressEvent{SessionID: sessionID, Message: message, Pct: pct})
	}

	progress("loading batch", 0)
	batch, err := h.provider.LoadBatch(ctx, time.Now(), req.FullUniverse)
	if err != nil {
		h.logger.WithError(err).Error("Batch load failed")
		progress("batch load failed: "+err.Error(), 100)
		return
	}

	report, err := h.scanner.Scan(ctx, batch, sessionID, progress)
	if err != nil {
		h.logger.WithError(err).Error("Scan failed")
		progress("scan failed: "+err.Error(), 100)
		return
	}

	if req.DryRun {
		h.logger.WithField("session_id", sessionID).Info("Dry run, report not persisted")
		return
	}
	if err := h.audit.WriteScan(ctx, report); err != nil {
		h.logger.WithError(err).Error("Report persistence failed")
	}
}
