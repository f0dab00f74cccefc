package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navPattern matches an Italian-formatted amount ("1.234,56") anywhere
// in the page text; used as a fallback when the expected element is
// missing.
var navPattern = regexp.MustCompile(`\d{1,3}(\.\d{3})*,\d{2}`)

// FetchFundNAV scrapes a fund NAV from a provider page, dispatching on
// the URL. Returns the raw Italian-formatted text and the normalized
// value.
func (c *Client) FetchFundNAV(ctx context.Context, url string) (string, float64, error) {
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return "", 0, err
	}

	var raw string
	switch {
	case strings.Contains(url, "eurizoncapital.com"):
		raw = parseEurizon(doc)
	case strings.Contains(url, "teleborsa.it"):
		raw = parseTeleborsa(doc)
	default:
		return "", 0, fmt.Errorf("no parser for fund URL %s", url)
	}

	if raw == "" {
		return "", 0, fmt.Errorf("NAV not found in page %s", url)
	}

	value, err := ParseItalianNumber(raw)
	if err != nil {
		return raw, 0, fmt.Errorf("parse NAV %q: %w", raw, err)
	}
	return raw, value, nil
}

// parseEurizon extracts the NAV from a Eurizon product page.
func parseEurizon(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find("span.product-dashboard-token-value-bold").First().Text()); text != "" {
		return text
	}
	return navPattern.FindString(doc.Text())
}

// parseTeleborsa extracts the NAV from a Teleborsa quote page.
func parseTeleborsa(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find("span#ctl00_phContents_ctlHeader_lblPrice").Text()); text != "" {
		return text
	}
	if text := strings.TrimSpace(doc.Find(`span[id*="lblPrice"]`).First().Text()); text != "" {
		return text
	}
	return navPattern.FindString(doc.Text())
}

// ParseItalianNumber converts "1.234,56" into 1234.56: thousands dots
// dropped, decimal comma swapped for a dot.
func ParseItalianNumber(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	return strconv.ParseFloat(normalized, 64)
}
