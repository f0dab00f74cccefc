package market

import (
	"encoding/json"
	"fmt"
	"os"
)

// Instrument is one tracked asset. The set is immutable configuration,
// loaded once per run.
type Instrument struct {
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
	ItemID string `json:"item_id"` // quote-source page identifier
}

// LoadInstruments reads the instrument list from a JSON file.
func LoadInstruments(path string) ([]Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments file: %w", err)
	}

	var instruments []Instrument
	if err := json.Unmarshal(data, &instruments); err != nil {
		return nil, fmt.Errorf("parse instruments file %s: %w", path, err)
	}

	for i, inst := range instruments {
		if inst.Symbol == "" {
			return nil, fmt.Errorf("instrument %d in %s has no symbol", i, path)
		}
		if inst.Label == "" {
			instruments[i].Label = inst.Symbol
		}
	}

	return instruments, nil
}
