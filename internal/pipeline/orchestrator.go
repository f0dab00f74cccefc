// Package pipeline composes the quote source, the close-price history,
// the variation engine and the trading calendar into one "update all
// instruments" pass.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

// storeTimeout bounds each individual history query or write so one
// unreachable store cannot stall the whole pass.
const storeTimeout = 5 * time.Second

// PriceSource fetches the current price for one instrument. It is
// bounded by its own HTTP timeout; errors are converted to the
// unavailable status by the orchestrator.
type PriceSource interface {
	FetchPrice(ctx context.Context, inst market.Instrument) (float64, error)
}

// CloseStore is the slice of the history store the orchestrator needs.
type CloseStore interface {
	ClosestOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error)
	Upsert(ctx context.Context, row store.CloseRow) error
}

// MarketCalendar decides whether the market is open at an instant.
type MarketCalendar interface {
	IsOpen(t time.Time) bool
}

// Orchestrator runs update passes over the configured instrument set.
type Orchestrator struct {
	source   PriceSource
	history  CloseStore
	engine   *variation.Engine
	calendar MarketCalendar
	roles    variation.Roles
	logger   *logger.Logger

	now func() time.Time
}

// NewOrchestrator wires a pipeline orchestrator.
func NewOrchestrator(source PriceSource, history CloseStore, engine *variation.Engine, cal MarketCalendar, roles variation.Roles, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		source:   source,
		history:  history,
		engine:   engine,
		calendar: cal,
		roles:    roles,
		logger:   log,
		now:      time.Now,
	}
}

// UpdateAll runs one pass: sequentially per instrument, fetch the
// price, look up the previous close, persist today's snapshot when the
// market is open, and compute the variation set. One instrument's
// failure never aborts the pass; an empty instrument set yields an
// empty output and no error.
func (o *Orchestrator) UpdateAll(ctx context.Context, instruments []market.Instrument) PassOutput {
	startedAt := o.now()
	// One open/closed verdict per pass, consistent across instruments.
	marketOpen := o.calendar.IsOpen(startedAt)
	today := dateOnly(startedAt)

	output := PassOutput{
		Results:    make(map[string]Result, len(instruments)),
		MarketOpen: marketOpen,
		StartedAt:  startedAt,
	}

	for _, inst := range instruments {
		output.Results[inst.Symbol] = o.updateOne(ctx, inst, today, marketOpen)
	}

	o.logger.WithFields(map[string]interface{}{
		"instruments": len(output.Results),
		"market_open": marketOpen,
	}).Info("Instrument update pass completed")
	return output
}

// updateOne runs the sub-pipeline for a single instrument.
func (o *Orchestrator) updateOne(ctx context.Context, inst market.Instrument, today time.Time, marketOpen bool) Result {
	result := Result{
		Symbol:       inst.Symbol,
		Label:        inst.Label,
		SnapshotDate: today,
		Status:       StatusUnavailable,
	}

	price, err := o.source.FetchPrice(ctx, inst)
	if err != nil {
		o.logger.WithError(err).WithField("symbol", inst.Symbol).Error("Price fetch failed")
		return result
	}
	result.Price = market.PriceOf(price)

	// Previous close: the nearest snapshot strictly before today.
	prev, err := o.previousClose(ctx, inst.Symbol, today)
	if err != nil {
		if !errors.Is(err, store.ErrNoClose) {
			o.logger.WithError(err).WithField("symbol", inst.Symbol).Warn("Previous close lookup failed")
		}
	} else {
		result.PreviousClose = market.PriceOf(prev)
		if prev != 0 {
			result.DailyChange = market.PriceOf((price - prev) / prev * 100)
		}
	}

	// History accumulates only during trading hours.
	if marketOpen {
		if err := o.persist(ctx, inst, today, price, result.DailyChange); err != nil {
			o.logger.WithError(err).WithField("symbol", inst.Symbol).Error("Close snapshot persist failed")
		}
	}

	result.Variations = o.engine.Compute(ctx, inst.Symbol, price, today)
	result.Roles = make(map[string]variation.Result, len(o.roles))
	for role := range o.roles {
		result.Roles[role] = variation.Select(result.Variations, o.roles.Resolve(role))
	}

	if marketOpen {
		result.Status = StatusOpen
	} else {
		result.Status = StatusClosed
	}
	return result
}

func (o *Orchestrator) previousClose(ctx context.Context, symbol string, today time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return o.history.ClosestOnOrBefore(ctx, symbol, today.AddDate(0, 0, -1))
}

func (o *Orchestrator) persist(ctx context.Context, inst market.Instrument, today time.Time, price float64, dailyChange market.Price) error {
	row := store.CloseRow{
		Symbol:       inst.Symbol,
		Label:        inst.Label,
		SnapshotDate: today,
		CloseValue:   price,
	}
	if dc, ok := dailyChange.Value(); ok {
		row.DailyChange = &dc
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return o.history.Upsert(ctx, row)
}

// dateOnly truncates an instant to its local calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
