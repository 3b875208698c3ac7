package handlers

import (
	"context"
	"net/http"

	"github.com/adi-verma/quantscanner/internal/health"
	"github.com/adi-verma/quantscanner/internal/scheduler"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

type healthRunner interface {
	Run(ctx context.Context) *health.Report
}

// HealthHandler serves the full system health report
type HealthHandler struct {
	checker healthRunner
	logger  *logger.Logger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(checker healthRunner, log *logger.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: log}
}

// Get runs all probes and reports them. Unhealthy is 503 so load
// balancers and uptime monitors see it without parsing the body.
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Run(r.Context())

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, report)
}

type jobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler serves scheduler job statistics
type JobsHandler struct {
	scheduler jobStatsSource
	logger    *logger.Logger
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(sched jobStatsSource, log *logger.Logger) *JobsHandler {
	return &JobsHandler{scheduler: sched, logger: log}
}

// GetStats returns per-job execution statistics
// GET /api/jobs
func (h *JobsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}
