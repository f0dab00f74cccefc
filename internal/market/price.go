package market

import (
	"encoding/json"
	"fmt"
)

// Price is a two-variant quote value: a number is either present or
// unavailable. Consumers must check Available explicitly; the literal
// "N/A" rendering belongs to the formatting boundary, never here.
type Price struct {
	value float64
	ok    bool
}

// PriceOf returns a present Price.
func PriceOf(v float64) Price {
	return Price{value: v, ok: true}
}

// NoPrice returns the unavailable sentinel.
func NoPrice() Price {
	return Price{}
}

// Value returns the numeric value and whether it is present.
func (p Price) Value() (float64, bool) {
	return p.value, p.ok
}

// Available reports whether a value is present.
func (p Price) Available() bool {
	return p.ok
}

// String renders the value with two decimals, or "N/A".
func (p Price) String() string {
	if !p.ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", p.value)
}

// MarshalJSON encodes a present value as a number and an unavailable
// one as null.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.ok {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}
