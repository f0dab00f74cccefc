// Package alert classifies variations into discrete severity tiers via
// an ordered threshold ladder and fires at most one notification per
// evaluation cycle.
package alert

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Tier is one rung of the threshold ladder. Higher Index means more
// severe.
type Tier struct {
	Index    int
	Cutpoint float64
}

// Ladder is an ordered set of severity cutpoints. Polarity is inferred
// from the cutpoints' sign: negative cutpoints make a decline ladder
// (breach when value <= cutpoint), non-negative ones a gain ladder
// (breach when value >= cutpoint).
type Ladder struct {
	tiers   []Tier
	falling bool
}

// Tiers returns the parsed tiers, ordered by index.
func (l Ladder) Tiers() []Tier {
	return l.tiers
}

// Falling reports decline polarity.
func (l Ladder) Falling() bool {
	return l.falling
}

// Breached returns the most severe tier whose cutpoint condition holds
// for value: the largest index with value <= cutpoint on a falling
// ladder, value >= cutpoint on a rising one.
func (l Ladder) Breached(value float64) (Tier, bool) {
	var best Tier
	found := false
	for _, t := range l.tiers {
		breach := value >= t.Cutpoint
		if l.falling {
			breach = value <= t.Cutpoint
		}
		if breach && (!found || t.Index > best.Index) {
			best = t
			found = true
		}
	}
	return best, found
}

// Settings is the parsed alert configuration file: the ladder plus the
// role-to-period-code mapping.
type Settings struct {
	Ladder Ladder
	Roles  variation.Roles
}

// LoadSettings parses the line-oriented alert configuration. Lines are
// key=value; '#' starts a comment. Keys:
//
//	tier.<index> = <cutpoint>
//	role.<name>  = <period code>
//
// Malformed lines and minority-sign cutpoints are skipped with a
// warning; parsing never fails on a single bad entry.
func LoadSettings(path string, log *logger.Logger) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("open alert config: %w", err)
	}
	defer f.Close()

	settings := Settings{Roles: variation.DefaultRoles()}
	var tiers []Tier

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			log.Warnf("alert config %s:%d: not a key=value line, skipped", path, lineNo)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.HasPrefix(key, "tier."):
			index, err := strconv.Atoi(strings.TrimPrefix(key, "tier."))
			if err != nil || index < 0 {
				log.Warnf("alert config %s:%d: bad tier index %q, skipped", path, lineNo, key)
				continue
			}
			cutpoint, err := strconv.ParseFloat(value, 64)
			if err != nil {
				log.Warnf("alert config %s:%d: bad cutpoint %q, skipped", path, lineNo, value)
				continue
			}
			tiers = append(tiers, Tier{Index: index, Cutpoint: cutpoint})

		case strings.HasPrefix(key, "role."):
			settings.Roles[strings.TrimPrefix(key, "role.")] = value

		default:
			log.Warnf("alert config %s:%d: unknown key %q, skipped", path, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, fmt.Errorf("read alert config: %w", err)
	}

	settings.Ladder = buildLadder(tiers, log)
	return settings, nil
}

// buildLadder infers polarity from the majority cutpoint sign and
// drops minority-sign entries as malformed.
func buildLadder(tiers []Tier, log *logger.Logger) Ladder {
	if len(tiers) == 0 {
		return Ladder{}
	}

	negative := 0
	for _, t := range tiers {
		if t.Cutpoint < 0 {
			negative++
		}
	}
	falling := negative*2 >= len(tiers)

	kept := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if falling != (t.Cutpoint < 0) && t.Cutpoint != 0 {
			log.Warnf("alert ladder: tier %d cutpoint %.2f disagrees with ladder polarity, skipped", t.Index, t.Cutpoint)
			continue
		}
		kept = append(kept, t)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Index < kept[j].Index })
	return Ladder{tiers: kept, falling: falling}
}
