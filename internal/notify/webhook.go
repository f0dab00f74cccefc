package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marchino/etfwatch/internal/alert"
	"github.com/marchino/etfwatch/pkg/httputil"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Webhook fires a GET trigger (a home-automation routine URL) when an
// alert tier breaches. It implements alert.Sink.
type Webhook struct {
	url    string
	client *httputil.Client
	logger *logger.Logger
}

// NewWebhook creates a webhook sink.
func NewWebhook(url string, client *httputil.Client, log *logger.Logger) *Webhook {
	return &Webhook{url: url, client: client, logger: log}
}

// Fire triggers the webhook for the breached tier.
func (w *Webhook) Fire(ctx context.Context, tier alert.Tier) error {
	if w.url == "" {
		return fmt.Errorf("alert webhook URL not configured")
	}

	resp, err := w.client.Get(ctx, w.url)
	if err != nil {
		return fmt.Errorf("trigger webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.WithFields(map[string]interface{}{
		"tier":     tier.Index,
		"cutpoint": tier.Cutpoint,
	}).Info("Alert webhook triggered")
	return nil
}
