// Package variation reconstructs multi-period percentage changes from
// the close-price history using nearest-preceding-date lookups.
package variation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Period is one configured look-back window. Days is calendar days,
// not trading days.
type Period struct {
	Code string
	Days int
}

// Periods is the fixed set of look-back windows, shortest first.
var Periods = []Period{
	{"1d", 1},
	{"7d", 7},
	{"30d", 30},
	{"90d", 90},
	{"180d", 180},
	{"1y", 365},
	{"3y", 1095},
	{"5y", 1825},
}

// Result is the variation over one period: either a signed percentage
// or not available. Absence never collapses to a numeric zero.
type Result struct {
	Code string
	pct  float64
	ok   bool
}

// Of returns a present variation result.
func Of(code string, pct float64) Result {
	return Result{Code: code, pct: pct, ok: true}
}

// NotAvailable returns the unavailable result for a period code.
func NotAvailable(code string) Result {
	return Result{Code: code}
}

// Pct returns the percentage and whether it is present.
func (r Result) Pct() (float64, bool) {
	return r.pct, r.ok
}

// String renders the variation with explicit sign, two decimals and
// the period-code suffix, or the literal "N/A".
func (r Result) String() string {
	if !r.ok {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%%s", r.pct, r.Code)
}

// CloseLookup is the slice of the history store the engine needs.
type CloseLookup interface {
	ClosestOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// Engine computes look-back variations against a close-price history.
type Engine struct {
	history CloseLookup
	periods []Period
	logger  *logger.Logger
}

// NewEngine creates a variation engine over the standard period set.
func NewEngine(history CloseLookup, log *logger.Logger) *Engine {
	return &Engine{
		history: history,
		periods: Periods,
		logger:  log,
	}
}

// Compute derives one Result per configured period for a symbol
// trading at current on asOf. Each period is computed independently; a
// history failure on one period never aborts the others.
func (e *Engine) Compute(ctx context.Context, symbol string, current float64, asOf time.Time) []Result {
	results := make([]Result, 0, len(e.periods))
	for _, p := range e.periods {
		results = append(results, e.computeOne(ctx, symbol, current, asOf, p))
	}
	return results
}

// computeOne looks up the nearest close on or before asOf − days and
// returns the percentage change from it.
func (e *Engine) computeOne(ctx context.Context, symbol string, current float64, asOf time.Time, p Period) Result {
	target := asOf.AddDate(0, 0, -p.Days)

	past, err := e.history.ClosestOnOrBefore(ctx, symbol, target)
	if err != nil {
		if !errors.Is(err, store.ErrNoClose) {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"period": p.Code,
			}).Warn("History lookup failed")
		}
		return NotAvailable(p.Code)
	}

	if past == 0 {
		return NotAvailable(p.Code)
	}

	return Of(p.Code, (current-past)/past*100)
}
