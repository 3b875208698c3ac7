package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/internal/health"
	"github.com/adi-verma/quantscanner/internal/scheduler"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

type fakeChecker struct {
	report *health.Report
}

func (f *fakeChecker) Run(_ context.Context) *health.Report { return f.report }

func TestHealthHandler_Healthy(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{report: &health.Report{
		Healthy: true,
		Checks:  []health.Check{{Name: "database", OK: true}},
	}}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Healthy)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{report: &health.Report{
		Healthy: false,
		Checks:  []health.Check{{Name: "database", OK: false, Detail: "connection refused"}},
	}}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeJobStats struct{}

func (fakeJobStats) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{
		"daily_scan": {JobName: "daily_scan", TotalRuns: 3, SuccessCount: 3, SuccessRate: 1.0},
	}
}

func TestJobsHandler_GetStats(t *testing.T) {
	h := NewJobsHandler(fakeJobStats{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest("GET", "/api/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]scheduler.JobStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got["daily_scan"].TotalRuns)
}
