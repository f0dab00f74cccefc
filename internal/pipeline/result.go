package pipeline

import (
	"time"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/variation"
)

// Status is the per-instrument outcome of one pass.
type Status string

const (
	StatusOpen        Status = "open"
	StatusClosed      Status = "closed"
	StatusUnavailable Status = "unavailable"
)

// Result is the structured per-instrument output of a pass.
type Result struct {
	Symbol        string
	Label         string
	Price         market.Price
	PreviousClose market.Price
	DailyChange   market.Price // percent vs previous close
	SnapshotDate  time.Time
	Status        Status

	// Variations holds one result per configured period code.
	Variations []variation.Result
	// Roles maps each configured role to its period's result.
	Roles map[string]variation.Result
}

// RoleValue returns the variation bound to a role, NotAvailable if the
// role was never computed (for example on an unavailable instrument).
func (r Result) RoleValue(role string) variation.Result {
	if v, ok := r.Roles[role]; ok {
		return v
	}
	return variation.NotAvailable(variation.DefaultPeriodCode)
}

// PassOutput is the aggregate handed to reporting, alerting and
// presentation: every configured instrument keyed by symbol, plus the
// pass-wide market-open flag.
type PassOutput struct {
	Results    map[string]Result
	MarketOpen bool
	StartedAt  time.Time
}

// AlertValues extracts the alert-basis variation per symbol.
func (p PassOutput) AlertValues() map[string]variation.Result {
	values := make(map[string]variation.Result, len(p.Results))
	for symbol, res := range p.Results {
		values[symbol] = res.RoleValue(variation.RoleAlert)
	}
	return values
}
