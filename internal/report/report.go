// Package report renders and sends the periodic Telegram summary.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

// monthNames is indexed by (month − 1) so that a report sent on the
// first day of a month names the month just ended; January rolls back
// to December of the previous year.
var monthNames = [12]string{
	"DICEMBRE", "GENNAIO", "FEBBRAIO", "MARZO", "APRILE", "MAGGIO",
	"GIUGNO", "LUGLIO", "AGOSTO", "SETTEMBRE", "OTTOBRE", "NOVEMBRE",
}

// Sender is the message channel the report goes out on.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Reporter builds and sends the monthly variation report.
type Reporter struct {
	sender Sender
	logger *logger.Logger
	now    func() time.Time
}

// NewReporter creates a monthly reporter.
func NewReporter(sender Sender, log *logger.Logger) *Reporter {
	return &Reporter{
		sender: sender,
		logger: log,
		now:    time.Now,
	}
}

// Send renders the report for a completed pass and delivers it.
func (r *Reporter) Send(ctx context.Context, output pipeline.PassOutput) error {
	if len(output.Results) == 0 {
		return fmt.Errorf("no instrument data to report")
	}

	msg := r.build(output)
	if err := r.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send monthly report: %w", err)
	}

	r.logger.Info("Monthly report sent")
	return nil
}

// build renders the Markdown report body.
func (r *Reporter) build(output pipeline.PassOutput) string {
	now := r.now()
	month := monthNames[now.Month()-1]
	year := now.Year()
	if now.Month() == time.January {
		year--
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *REPORT ETF - %s %d*\n", month, year)
	b.WriteString("Variazione periodo\n")
	b.WriteString("---------------------------\n\n")

	symbols := make([]string, 0, len(output.Results))
	for symbol := range output.Results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		res := output.Results[symbol]
		name := res.Label
		if name == "" {
			name = symbol
		}

		price := "N/A"
		if v, ok := res.Price.Value(); ok {
			price = fmt.Sprintf("€%.2f", v)
		}

		fmt.Fprintf(&b, "🔹 *%s*\n", name)
		fmt.Fprintf(&b, "   Ultimo: %s | Var: `%s`\n\n", price, res.RoleValue(variation.RoleReport))
	}

	return b.String()
}
