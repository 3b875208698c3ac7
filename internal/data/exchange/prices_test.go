package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{
	"chart": {
		"result": [{
			"timestamp": [1748822400, 1748908800, 1748995200],
			"indicators": {
				"quote": [{
					"open":   [100.0, 102.0, null],
					"high":   [105.0, 106.0, 107.0],
					"low":    [99.0, 101.0, 102.0],
					"close":  [102.0, 104.0, 105.0],
					"volume": [1500000, 1800000, 1600000]
				}]
			}
		}],
		"error": null
	}
}`

func TestParseChartResponse(t *testing.T) {
	bars, err := parseChartResponse([]byte(chartJSON))
	require.NoError(t, err)

	// The third session has a null open and is dropped
	require.Len(t, bars, 2)

	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 105.0, bars[0].High)
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, 102.0, bars[0].Close)
	assert.Equal(t, 1500000.0, bars[0].Volume)
	assert.Equal(t, 104.0, bars[1].Close)
	assert.True(t, bars[1].Date.After(bars[0].Date))
}

func TestParseChartResponse_APIError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	_, err := parseChartResponse([]byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestParseChartResponse_Empty(t *testing.T) {
	_, err := parseChartResponse([]byte(`{"chart":{"result":[],"error":null}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestFetchDailyPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/RELIANCE.NS", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(chartJSON))
	}))
	defer server.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	bars, err := testClient(server.URL).FetchDailyPrices(context.Background(), "RELIANCE.NS", from, to)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}
