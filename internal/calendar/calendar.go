// Package calendar decides whether the market is open at a given
// instant: weekends, fixed Italian holidays, Easter-relative holidays
// and the daily trading window. All checks use local wall-clock fields
// in the configured zone; instants are never compared across zones.
package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/marchino/etfwatch/pkg/config"
)

// fixedClosures are (month, day) pairs on which the market never
// opens: New Year, Liberation Day, Labour Day, Republic Day,
// Mid-August, Christmas, St. Stephen, plus the Dec 24 / Dec 31
// half-day closures.
var fixedClosures = [][2]int{
	{1, 1},
	{4, 25},
	{5, 1},
	{6, 2},
	{8, 15},
	{12, 24},
	{12, 25},
	{12, 26},
	{12, 31},
}

// Calendar is the trading-calendar predicate. It is safe for
// concurrent use; the per-year Easter cache is the only mutable state.
type Calendar struct {
	loc       *time.Location
	openMins  int // minutes past local midnight, inclusive
	closeMins int // minutes past local midnight, inclusive

	mu     sync.Mutex
	easter map[int]time.Time
}

// New builds a Calendar from market configuration. Errors here are
// fatal to the caller: a misconfigured calendar invalidates every
// later open/closed decision.
func New(cfg config.MarketConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	openMins, err := config.ParseClock(cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("market open time: %w", err)
	}
	closeMins, err := config.ParseClock(cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("market close time: %w", err)
	}
	if openMins >= closeMins {
		return nil, fmt.Errorf("market open %s must precede close %s", cfg.Open, cfg.Close)
	}

	return &Calendar{
		loc:       loc,
		openMins:  openMins,
		closeMins: closeMins,
		easter:    make(map[int]time.Time),
	}, nil
}

// IsOpen reports whether the market is open at t.
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	if c.IsHoliday(local) {
		return false
	}

	mins := local.Hour()*60 + local.Minute()
	return mins >= c.openMins && mins <= c.closeMins
}

// IsTradingDay reports whether the local date of t is a weekday that
// is not a holiday, regardless of time of day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.IsHoliday(local)
}

// IsHoliday reports whether the local date of t is a fixed or moving
// holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	local := t.In(c.loc)
	month, day := int(local.Month()), local.Day()

	for _, fc := range fixedClosures {
		if fc[0] == month && fc[1] == day {
			return true
		}
	}

	easter := c.easterFor(local.Year())
	y, m, d := local.Date()
	for _, delta := range []int{-2, 0, 1} { // Good Friday, Easter, Easter Monday
		hy, hm, hd := easter.AddDate(0, 0, delta).Date()
		if y == hy && m == hm && d == hd {
			return true
		}
	}

	return false
}

// easterFor returns the memoized Easter Sunday for a year. Easter is
// invariant per year and queried many times per day.
func (c *Calendar) easterFor(year int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.easter[year]; ok {
		return e
	}
	e := Easter(year, c.loc)
	c.easter[year] = e
	return e
}

// Easter computes Easter Sunday for a Gregorian year using the
// Meeus/Jones/Butcher algorithm. Valid for any year >= 1583.
func Easter(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
