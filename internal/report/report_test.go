package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

type captureSender struct {
	sent []string
	err  error
}

func (s *captureSender) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

func testOutput() pipeline.PassOutput {
	return pipeline.PassOutput{Results: map[string]pipeline.Result{
		"VWCE": {
			Symbol: "VWCE",
			Label:  "Vanguard FTSE All-World Acc",
			Price:  market.PriceOf(118.3),
			Roles: map[string]variation.Result{
				variation.RoleReport: variation.Of("30d", -1.2),
			},
		},
		"VUAA": {
			Symbol: "VUAA",
			Label:  "Vanguard S&P 500 Acc",
			Price:  market.PriceOf(110.25),
			Roles: map[string]variation.Result{
				variation.RoleReport: variation.Of("30d", 2.5),
			},
		},
	}}
}

func fixedReporter(sender Sender, at time.Time) *Reporter {
	r := NewReporter(sender, logger.Nop())
	r.now = func() time.Time { return at }
	return r
}

func TestSendRendersReport(t *testing.T) {
	sender := &captureSender{}
	r := fixedReporter(sender, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))

	if err := r.Send(context.Background(), testOutput()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sender got %d messages, want 1", len(sender.sent))
	}

	msg := sender.sent[0]
	if !strings.Contains(msg, "REPORT ETF - MARZO 2026") {
		t.Errorf("title missing or wrong month:\n%s", msg)
	}
	for _, want := range []string{
		"*Vanguard S&P 500 Acc*",
		"Ultimo: €110.25 | Var: `+2.50%30d`",
		"*Vanguard FTSE All-World Acc*",
		"Ultimo: €118.30 | Var: `-1.20%30d`",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}

	// Instruments appear in symbol order.
	if strings.Index(msg, "VUAA") > strings.Index(msg, "Vanguard FTSE") && strings.Index(msg, "S&P 500") > strings.Index(msg, "All-World") {
		t.Errorf("instruments out of order:\n%s", msg)
	}
}

func TestSendJanuaryRollsBackYear(t *testing.T) {
	sender := &captureSender{}
	r := fixedReporter(sender, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))

	if err := r.Send(context.Background(), testOutput()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(sender.sent[0], "DICEMBRE 2025") {
		t.Errorf("january report should name DICEMBRE 2025:\n%s", sender.sent[0])
	}
}

func TestSendUnavailableInstrument(t *testing.T) {
	sender := &captureSender{}
	r := fixedReporter(sender, time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))

	output := pipeline.PassOutput{Results: map[string]pipeline.Result{
		"VUAA": {Symbol: "VUAA", Status: pipeline.StatusUnavailable},
	}}
	if err := r.Send(context.Background(), output); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msg := sender.sent[0]
	if !strings.Contains(msg, "*VUAA*") {
		t.Errorf("label fallback to symbol missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Ultimo: N/A | Var: `N/A`") {
		t.Errorf("unavailable instrument not rendered as N/A:\n%s", msg)
	}
}

func TestSendEmptyOutput(t *testing.T) {
	sender := &captureSender{}
	r := fixedReporter(sender, time.Now())

	if err := r.Send(context.Background(), pipeline.PassOutput{}); err == nil {
		t.Error("Send(empty) error = nil, want error")
	}
	if len(sender.sent) != 0 {
		t.Errorf("sender got %d messages for empty output, want 0", len(sender.sent))
	}
}

func TestSendDeliveryFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("telegram unreachable")}
	r := fixedReporter(sender, time.Now())

	if err := r.Send(context.Background(), testOutput()); err == nil {
		t.Error("Send() error = nil when delivery fails")
	}
}
