// Package scrape turns quote-source markup pages into prices. A fetch
// either yields a price or a failure; failures never propagate past
// the pipeline boundary as anything but the unavailable sentinel.
package scrape

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/marchino/etfwatch/pkg/config"
	"github.com/marchino/etfwatch/pkg/httputil"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Client fetches and parses quote-source pages.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	userAgent  string
	logger     *logger.Logger
}

// NewClient creates a scrape client.
func NewClient(cfg config.ScrapeConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		logger:     log,
	}
}

// fetchDocument GETs a page and parses it.
func (c *Client) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page failed: %w", err)
	}
	return doc, nil
}
