package gates

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

func TestParallelMap_CoversEveryTicker(t *testing.T) {
	tickers := make([]string, 100)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%03d.NS", i)
	}

	var calls int64
	results, err := parallelMap(context.Background(), tickers, 8, func(ticker string) string {
		atomic.AddInt64(&calls, 1)
		return strings.ToLower(ticker)
	})
	require.NoError(t, err)

	require.Len(t, results, 100)
	assert.Equal(t, int64(100), calls)
	assert.Equal(t, "t042.ns", results["T042.NS"])
}

func TestParallelMap_CancelledContextAborts(t *testing.T) {
	// A partial map must never escape: a missing entry reads as a zero
	// value downstream and would enter the trail as a result that was
	// never computed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tickers := make([]string, 50)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%03d.NS", i)
	}

	var calls int64
	results, err := parallelMap(ctx, tickers, 8, func(ticker string) int {
		atomic.AddInt64(&calls, 1)
		return 1
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func TestParallelMap_EmptyInput(t *testing.T) {
	results, err := parallelMap(context.Background(), nil, 8, func(ticker string) int {
		t.Fatal("must not be called")
		return 0
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParallelMap_ClampsWorkerCount(t *testing.T) {
	results, err := parallelMap(context.Background(), []string{"A", "B"}, 0, func(ticker string) string {
		return ticker
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSurvivorsOf_SortedPassing(t *testing.T) {
	results := map[string]contracts.GateResult{
		"ZEE.NS":  contracts.Pass("ok", nil),
		"ABB.NS":  contracts.Pass("ok", nil),
		"BAD.NS":  contracts.Fail("no", nil),
		"SOFT.NS": contracts.SoftFail("almost", nil),
	}

	assert.Equal(t, []string{"ABB.NS", "ZEE.NS"}, survivorsOf(results))
}
