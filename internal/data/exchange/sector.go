package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile is the slow-moving metadata scraped from an instrument's quote
// page. Zero values mean the page did not disclose the field.
type Profile struct {
	Sector      string  `json:"sector"`
	MarketCapCr float64 `json:"market_cap_cr"`
}

// FetchProfile scrapes the sector classification and market cap from the
// instrument's quote page. The page layout shifts occasionally, so a few
// selectors are tried in order; an unrecognized page yields zero values
// and the caller maps those to the Unknown sector group and the strictest
// cap tier rather than failing the instrument.
func (c *Client) FetchProfile(ctx context.Context, ticker string) (*Profile, error) {
	symbol := strings.TrimSuffix(strings.TrimSuffix(ticker, ".NS"), ".BO")
	url := fmt.Sprintf("%s/get-quotes/equity?symbol=%s", c.cfg.QuoteBaseURL, symbol)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch quote page for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote page for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse quote page for %s: %w", ticker, err)
	}

	profile := &Profile{
		Sector:      extractSector(doc),
		MarketCapCr: extractMarketCapCr(doc),
	}
	if profile.Sector == "" {
		c.logger.WithField("ticker", ticker).Debug("Sector not found on quote page")
	}
	return profile, nil
}

// extractSector tries the known page layouts in order
func extractSector(doc *goquery.Document) string {
	selectors := []string{
		"#quoteIndustryInfo span.sector-name",
		"td#sectorindustry",
		"div.company-profile span[data-field=sector]",
	}

	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}

	return labelledValue(doc, "Sector")
}

// extractMarketCapCr reads the total market cap in crore. The quote page
// renders it with Indian digit grouping ("17,08,245.30").
func extractMarketCapCr(doc *goquery.Document) float64 {
	raw := strings.TrimSpace(doc.Find("#orderBookTradeTMC, td#totalMarketCap").First().Text())
	if raw == "" {
		for _, label := range []string{"Total Market Cap (₹ Cr.)", "Total Market Cap"} {
			if raw = labelledValue(doc, label); raw != "" {
				break
			}
		}
	}
	if raw == "" || raw == "-" {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0
	}
	return value
}

// labelledValue scans label/value table rows for a cell whose header
// matches the label
func labelledValue(doc *goquery.Document, label string) string {
	value := ""
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		header := strings.TrimSpace(row.Find("th, td").First().Text())
		if !strings.EqualFold(header, label) {
			return true
		}
		cells := row.Find("td")
		if cells.Length() > 0 {
			value = strings.TrimSpace(cells.Last().Text())
		}
		return false
	})
	return value
}
