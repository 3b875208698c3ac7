package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/httputil"
	"github.com/adi-verma/quantscanner/pkg/logger"
	"github.com/adi-verma/quantscanner/pkg/redis"
)

type fakeDB struct {
	err error
}

func (f *fakeDB) Ping(_ context.Context) error { return f.err }

type fakePrices struct {
	latest string
	err    error
}

func (f *fakePrices) LatestTradeDate(_ context.Context, _ string) (string, error) {
	return f.latest, f.err
}

func disabledRedis(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return client
}

func testChecker(t *testing.T, db *fakeDB, prices *fakePrices, connectivityURL string) *Checker {
	t.Helper()
	c := NewChecker(
		db,
		disabledRedis(t),
		prices,
		httputil.New(logger.NewNop()).DisableRetry(),
		config.NSEConfig{ConnectivityURL: connectivityURL, TestTicker: "RELIANCE.NS"},
		logger.NewNop(),
	)
	c.now = func() time.Time { return time.Date(2026, 8, 21, 14, 55, 0, 0, time.UTC) }
	return c
}

func findCheck(t *testing.T, report *Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not in report", name)
	return Check{}
}

func TestChecker_AllHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := testChecker(t, &fakeDB{}, &fakePrices{latest: "2026-08-20"}, server.URL)
	report := checker.Run(context.Background())

	assert.True(t, report.Healthy)
	assert.Len(t, report.Checks, 4)
	assert.Equal(t, "disabled", findCheck(t, report, "redis").Detail)
}

func TestChecker_DatabaseDownFailsReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := testChecker(t, &fakeDB{err: errors.New("connection refused")}, &fakePrices{latest: "2026-08-20"}, server.URL)
	report := checker.Run(context.Background())

	assert.False(t, report.Healthy)
	db := findCheck(t, report, "database")
	assert.False(t, db.OK)
	assert.Contains(t, db.Detail, "connection refused")
}

func TestChecker_StalePricesFailFreshness(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := testChecker(t, &fakeDB{}, &fakePrices{latest: "2026-08-01"}, server.URL)
	report := checker.Run(context.Background())

	assert.False(t, report.Healthy)
	freshness := findCheck(t, report, "data_freshness")
	assert.False(t, freshness.OK)
	assert.Contains(t, freshness.Detail, "days old")
}

func TestChecker_WeekendGapIsFresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Friday bar checked on the following Monday
	checker := testChecker(t, &fakeDB{}, &fakePrices{latest: "2026-08-18"}, server.URL)
	report := checker.Run(context.Background())

	assert.True(t, findCheck(t, report, "data_freshness").OK)
	assert.True(t, report.Healthy)
}

func TestChecker_ConnectivityErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	checker := testChecker(t, &fakeDB{}, &fakePrices{latest: "2026-08-20"}, server.URL)
	report := checker.Run(context.Background())

	assert.False(t, report.Healthy)
	connectivity := findCheck(t, report, "connectivity")
	assert.False(t, connectivity.OK)
	assert.Contains(t, connectivity.Detail, "status 403")
}
