package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/marchino/etfwatch/internal/market"
)

// FetchPrice scrapes the mid price for one instrument from its quote
// page. The source renders prices with a comma decimal separator.
func (c *Client) FetchPrice(ctx context.Context, inst market.Instrument) (float64, error) {
	url := fmt.Sprintf("%s/de/etf/%s", c.baseURL, inst.ItemID)

	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return 0, err
	}

	selector := fmt.Sprintf(`span[field="mid"][item="%s@1"]`, inst.ItemID)
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("mid price not found for item %s", inst.ItemID)
	}

	price, err := parseCommaDecimal(text)
	if err != nil {
		return 0, fmt.Errorf("parse mid price %q for item %s: %w", text, inst.ItemID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": inst.Symbol,
		"price":  price,
	}).Debug("Fetched price")
	return price, nil
}

// parseCommaDecimal parses a number using a comma as the decimal
// separator ("123,45").
func parseCommaDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
