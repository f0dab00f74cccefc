// Package notify holds the outbound notification channels: the
// Telegram bot and the alert webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marchino/etfwatch/pkg/config"
	"github.com/marchino/etfwatch/pkg/httputil"
)

// Telegram sends messages via the Telegram Bot API.
type Telegram struct {
	token  string
	chatID string
	client *httputil.Client
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg config.TelegramConfig, client *httputil.Client) *Telegram {
	return &Telegram{
		token:  cfg.Token,
		chatID: cfg.ChatID,
		client: client,
	}
}

// Configured reports whether token and chat id are set.
func (t *Telegram) Configured() bool {
	return t.token != "" && t.chatID != ""
}

// Send sends a Markdown message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram notifier not configured")
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	resp, err := t.client.PostJSON(ctx, apiURL, payload)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
