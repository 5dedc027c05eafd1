package s0_data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// HistorySource returns the bars of one code in a date range
type HistorySource interface {
	History(ctx context.Context, code string, from, to time.Time) ([]contracts.Bar, error)
}

// IndexCalendar derives trading dates from an index series: a date trades when the
// index has an active (volume != 0) record on it. Filled calendar days are skipped.
type IndexCalendar struct {
	src         HistorySource
	defaultCode string
}

func NewIndexCalendar(src HistorySource, defaultCode string) *IndexCalendar {
	return &IndexCalendar{src: src, defaultCode: defaultCode}
}

// TradingDates uses market as the index code, or the default index when empty
func (c *IndexCalendar) TradingDates(ctx context.Context, market string, start, end time.Time) ([]time.Time, error) {
	code := market
	if code == "" {
		code = c.defaultCode
	}

	bars, err := c.src.History(ctx, code, contracts.Day(start), contracts.Day(end))
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", code, err)
	}

	seen := make(map[string]struct{}, len(bars))
	dates := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		if !b.Active() {
			continue
		}
		key := contracts.DateKey(b.TradeDate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, contracts.Day(b.TradeDate))
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
