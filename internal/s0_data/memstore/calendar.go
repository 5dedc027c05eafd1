package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// StaticCalendar serves a fixed list of trading dates for every market
type StaticCalendar struct {
	dates []time.Time
}

func NewStaticCalendar(dates ...time.Time) *StaticCalendar {
	seen := make(map[string]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := contracts.DateKey(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, contracts.Day(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return &StaticCalendar{dates: out}
}

func (c *StaticCalendar) TradingDates(_ context.Context, _ string, start, end time.Time) ([]time.Time, error) {
	start, end = contracts.Day(start), contracts.Day(end)
	var out []time.Time
	for _, d := range c.dates {
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

// WeekdayCalendar treats every Monday to Friday as a trading date
type WeekdayCalendar struct{}

func (WeekdayCalendar) TradingDates(_ context.Context, _ string, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for d := contracts.Day(start); !d.After(contracts.Day(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out, nil
}
