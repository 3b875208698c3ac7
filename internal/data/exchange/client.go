package exchange

import (
	"time"

	"github.com/adi-verma/quantscanner/pkg/config"
	"github.com/adi-verma/quantscanner/pkg/httputil"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// Client talks to the NSE and BSE public endpoints: the equity master
// CSVs, the BSE scrip list API and the quote pages used for sector
// scraping. All requests run through the shared rate-limited HTTP client;
// both exchanges block aggressive crawlers.
type Client struct {
	cfg        config.NSEConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

// New creates an exchange client from config
func New(cfg config.NSEConfig, log *logger.Logger) *Client {
	httpClient := httputil.NewWithTimeout(log, 60*time.Second).
		WithRateLimit(cfg.RequestsPerSec).
		WithHeader("Accept-Language", "en-US,en;q=0.9")

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log.WithField("component", "exchange"),
	}
}

// Listing is one row of the exchange equity master
type Listing struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Series      string    `json:"series"`
	Exchange    string    `json:"exchange"`
	ISIN        string    `json:"isin"`
	ListingDate time.Time `json:"listing_date"`
}
