package exchange

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchNSEUniverse downloads the NSE equity master (EQUITY_L.csv) and
// returns the EQ-series listings. Other series (BE, SM, trade-to-trade)
// are excluded up front: they are either illiquid or under surveillance.
func (c *Client) FetchNSEUniverse(ctx context.Context) ([]Listing, error) {
	url := fmt.Sprintf("%s/content/equities/EQUITY_L.csv", c.cfg.ArchivesBaseURL)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch NSE equity master: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NSE equity master: unexpected status %d", resp.StatusCode)
	}

	listings, err := parseEquityMaster(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse NSE equity master: %w", err)
	}

	c.logger.WithField("count", len(listings)).Info("Fetched NSE universe")
	return listings, nil
}

// parseEquityMaster parses the NSE equity master CSV. Column order has
// been stable for years: SYMBOL, NAME OF COMPANY, SERIES, DATE OF
// LISTING, PAID UP VALUE, MARKET LOT, ISIN NUMBER, FACE VALUE.
func parseEquityMaster(r io.Reader) ([]Listing, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToUpper(name))] = i
	}
	for _, required := range []string{"SYMBOL", "NAME OF COMPANY", "SERIES"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var listings []Listing
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		series := strings.TrimSpace(row[col["SERIES"]])
		if series != "EQ" {
			continue
		}

		listing := Listing{
			Ticker:   strings.TrimSpace(row[col["SYMBOL"]]) + ".NS",
			Name:     strings.TrimSpace(row[col["NAME OF COMPANY"]]),
			Series:   series,
			Exchange: "NSE",
		}
		if i, ok := col["ISIN NUMBER"]; ok && i < len(row) {
			listing.ISIN = strings.TrimSpace(row[i])
		}
		if i, ok := col["DATE OF LISTING"]; ok && i < len(row) {
			if d, err := time.Parse("02-Jan-2006", strings.TrimSpace(row[i])); err == nil {
				listing.ListingDate = d
			}
		}

		listings = append(listings, listing)
	}

	return listings, nil
}

// bseScrip is one entry of the BSE scrip list API response
type bseScrip struct {
	ScripCode string `json:"SCRIP_CD"`
	ScripName string `json:"Scrip_Name"`
	ScripID   string `json:"scrip_id"`
	Status    string `json:"Status"`
	ISIN      string `json:"ISIN_NUMBER"`
}

// FetchBSEUniverse downloads the BSE active equity scrip list
func (c *Client) FetchBSEUniverse(ctx context.Context) ([]Listing, error) {
	url := fmt.Sprintf("%s/BseIndiaAPI/api/ListofScripData/w?Group=&Scripcode=&industry=&segment=Equity&status=Active", c.cfg.BSEAPIBaseURL)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch BSE scrip list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("BSE scrip list: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read BSE response: %w", err)
	}

	var scrips []bseScrip
	if err := json.Unmarshal(body, &scrips); err != nil {
		return nil, fmt.Errorf("parse BSE scrip list: %w", err)
	}

	listings := make([]Listing, 0, len(scrips))
	for _, s := range scrips {
		if !strings.EqualFold(s.Status, "Active") || s.ScripID == "" {
			continue
		}
		listings = append(listings, Listing{
			Ticker:   strings.ToUpper(strings.TrimSpace(s.ScripID)) + ".BO",
			Name:     strings.TrimSpace(s.ScripName),
			Series:   "EQ",
			Exchange: "BSE",
			ISIN:     strings.TrimSpace(s.ISIN),
		})
	}

	c.logger.WithField("count", len(listings)).Info("Fetched BSE universe")
	return listings, nil
}

// FetchIndexConstituents downloads an NSE index constituent CSV (e.g.
// ind_nifty500list.csv) and returns the member tickers. Used for the
// default (non-full-universe) scan scope.
func (c *Client) FetchIndexConstituents(ctx context.Context, indexFile string) ([]string, error) {
	url := fmt.Sprintf("%s/content/indices/%s", c.cfg.ArchivesBaseURL, indexFile)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch index constituents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index constituents: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	symbolIdx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "Symbol") {
			symbolIdx = i
			break
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("missing Symbol column")
	}

	var tickers []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		symbol := strings.TrimSpace(row[symbolIdx])
		if symbol == "" {
			continue
		}
		tickers = append(tickers, symbol+".NS")
	}

	c.logger.WithFields(map[string]interface{}{
		"index": indexFile,
		"count": len(tickers),
	}).Info("Fetched index constituents")
	return tickers, nil
}
