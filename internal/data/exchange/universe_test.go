package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

func testClient(serverURL string) *Client {
	return New(config.NSEConfig{
		ArchivesBaseURL: serverURL,
		BSEAPIBaseURL:   serverURL,
		ChartBaseURL:    serverURL,
		QuoteBaseURL:    serverURL,
		RequestsPerSec:  100,
	}, logger.NewNop())
}

const equityMasterCSV = `SYMBOL,NAME OF COMPANY, SERIES, DATE OF LISTING, PAID UP VALUE, MARKET LOT, ISIN NUMBER, FACE VALUE
RELIANCE,Reliance Industries Limited, EQ, 29-Nov-1995, 10, 1, INE002A01018, 10
TCS,Tata Consultancy Services Limited, EQ, 25-Aug-2004, 1, 1, INE467B01029, 1
SUSPENDED,Suspended Co Limited, BE, 01-Jan-2010, 10, 1, INE000X01000, 10
`

func TestParseEquityMaster(t *testing.T) {
	listings, err := parseEquityMaster(strings.NewReader(equityMasterCSV))
	require.NoError(t, err)

	require.Len(t, listings, 2, "non-EQ series must be excluded")

	assert.Equal(t, "RELIANCE.NS", listings[0].Ticker)
	assert.Equal(t, "Reliance Industries Limited", listings[0].Name)
	assert.Equal(t, "INE002A01018", listings[0].ISIN)
	assert.Equal(t, 1995, listings[0].ListingDate.Year())
	assert.Equal(t, "NSE", listings[0].Exchange)

	assert.Equal(t, "TCS.NS", listings[1].Ticker)
}

func TestParseEquityMaster_MissingColumn(t *testing.T) {
	_, err := parseEquityMaster(strings.NewReader("SYMBOL,SOMETHING\nX,Y\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestFetchNSEUniverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/equities/EQUITY_L.csv", r.URL.Path)
		w.Write([]byte(equityMasterCSV))
	}))
	defer server.Close()

	listings, err := testClient(server.URL).FetchNSEUniverse(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestFetchNSEUniverse_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchNSEUniverse(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestFetchBSEUniverse(t *testing.T) {
	payload := `[
		{"SCRIP_CD":"500325","Scrip_Name":"Reliance Industries Ltd","scrip_id":"RELIANCE","Status":"Active","ISIN_NUMBER":"INE002A01018"},
		{"SCRIP_CD":"500000","Scrip_Name":"Gone Ltd","scrip_id":"GONE","Status":"Delisted","ISIN_NUMBER":"INE000Y01000"},
		{"SCRIP_CD":"500001","Scrip_Name":"Anonymous Ltd","scrip_id":"","Status":"Active","ISIN_NUMBER":""}
	]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "ListofScripData")
		w.Write([]byte(payload))
	}))
	defer server.Close()

	listings, err := testClient(server.URL).FetchBSEUniverse(context.Background())
	require.NoError(t, err)

	require.Len(t, listings, 1, "inactive and unnamed scrips must be excluded")
	assert.Equal(t, "RELIANCE.BO", listings[0].Ticker)
	assert.Equal(t, "BSE", listings[0].Exchange)
}

func TestFetchIndexConstituents(t *testing.T) {
	csvBody := "Company Name,Industry,Symbol,Series,ISIN Code\nReliance Industries Ltd.,Oil & Gas,RELIANCE,EQ,INE002A01018\nHDFC Bank Ltd.,Banks,HDFCBANK,EQ,INE040A01034\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/indices/ind_nifty500list.csv", r.URL.Path)
		w.Write([]byte(csvBody))
	}))
	defer server.Close()

	tickers, err := testClient(server.URL).FetchIndexConstituents(context.Background(), "ind_nifty500list.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE.NS", "HDFCBANK.NS"}, tickers)
}
