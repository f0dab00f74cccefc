package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/config"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Sink is an outward notification channel, invoked at most once per
// evaluation cycle.
type Sink interface {
	Fire(ctx context.Context, tier Tier) error
}

// Window is the single daily time slot in which evaluation may fire.
// Repeated invocations outside it are no-ops, which guards against
// duplicate firing.
type Window struct {
	loc   *time.Location
	start int // minutes past local midnight, inclusive
	end   int // minutes past local midnight, inclusive
}

// NewWindow builds a daily window from "HH:MM" bounds in loc.
func NewWindow(loc *time.Location, start, end string) (Window, error) {
	startMins, err := config.ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	endMins, err := config.ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	if startMins > endMins {
		return Window{}, fmt.Errorf("window start %s is after end %s", start, end)
	}
	return Window{loc: loc, start: startMins, end: endMins}, nil
}

// Contains reports whether the local time of t falls inside the
// window.
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.loc)
	mins := local.Hour()*60 + local.Minute()
	return mins >= w.start && mins <= w.end
}

// Outcome is the result of one evaluation cycle.
type Outcome struct {
	Tier   Tier
	Fired  bool
	Reason string // "weekend", "outside_window", "no_alert", "triggered"
}

// Evaluator maps alert-basis variations to a severity tier. It is
// stateless between cycles; the ladder is its only configuration.
type Evaluator struct {
	ladder Ladder
	window Window
	sink   Sink
	logger *logger.Logger
}

// NewEvaluator creates an alert evaluator.
func NewEvaluator(ladder Ladder, window Window, sink Sink, log *logger.Logger) *Evaluator {
	return &Evaluator{
		ladder: ladder,
		window: window,
		sink:   sink,
		logger: log,
	}
}

// Evaluate runs one cycle over the alert-basis variation of every
// instrument. Among all instruments it selects the single most severe
// breached tier and fires the sink exactly once for it. Outside the
// daily window, or on weekends, the cycle always yields no alert.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time, values map[string]variation.Result) Outcome {
	local := now.In(e.window.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Outcome{Reason: "weekend"}
	}
	if !e.window.Contains(now) {
		return Outcome{Reason: "outside_window"}
	}

	var worst Tier
	var worstSymbol string
	found := false
	for symbol, value := range values {
		pct, ok := value.Pct()
		if !ok {
			continue
		}
		tier, breached := e.ladder.Breached(pct)
		if !breached {
			continue
		}
		if !found || tier.Index > worst.Index {
			worst = tier
			worstSymbol = symbol
			found = true
		}
	}

	if !found {
		return Outcome{Reason: "no_alert"}
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":   worstSymbol,
		"tier":     worst.Index,
		"cutpoint": worst.Cutpoint,
	}).Info("Alert tier breached")

	outcome := Outcome{Tier: worst, Reason: "triggered"}
	if err := e.sink.Fire(ctx, worst); err != nil {
		e.logger.WithError(err).WithField("tier", worst.Index).Error("Alert notification failed")
		return outcome
	}
	outcome.Fired = true
	return outcome
}
