// Package funds tracks the NAV of a configured list of mutual funds.
// Unlike ETFs, fund NAVs are not persisted to the close-price history;
// each run rewrites a CSV snapshot.
package funds

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Fund is one tracked fund, loaded from the fund list file.
type Fund struct {
	Name string
	URL  string
	ISIN string
}

// Load reads the fund list CSV. Blank lines and '#' comment lines are
// ignored; a BOM on the header is stripped.
func Load(path string) ([]Fund, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fund list: %w", err)
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(kept, "\n")))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse fund list %s: %w", path, err)
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}
	for _, required := range []string{"name", "url", "isin"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("fund list %s: missing column %q", path, required)
		}
	}

	var funds []Fund
	for _, record := range records[1:] {
		fund := Fund{
			Name: strings.TrimSpace(record[cols["name"]]),
			URL:  strings.TrimSpace(record[cols["url"]]),
			ISIN: strings.TrimSpace(record[cols["isin"]]),
		}
		if fund.Name == "" && fund.URL == "" && fund.ISIN == "" {
			continue
		}
		funds = append(funds, fund)
	}
	return funds, nil
}
