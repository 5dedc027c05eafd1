package s0_data

import (
	"sort"

	"github.com/wonny/valuepool/internal/contracts"
)

// FillNonTradingDays returns bars with one row per calendar day between the first and
// last bar. A missing day repeats the previous close as open/high/low/close, with
// volume 0 and the previous PE/PB. Input order does not matter; duplicates keep the last.
func FillNonTradingDays(bars []contracts.Bar) []contracts.Bar {
	if len(bars) == 0 {
		return nil
	}

	byDay := make(map[string]contracts.Bar, len(bars))
	for _, b := range bars {
		b.TradeDate = contracts.Day(b.TradeDate)
		byDay[contracts.DateKey(b.TradeDate)] = b
	}

	sorted := make([]contracts.Bar, 0, len(byDay))
	for _, b := range byDay {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TradeDate.Before(sorted[j].TradeDate) })

	first, last := sorted[0].TradeDate, sorted[len(sorted)-1].TradeDate
	out := make([]contracts.Bar, 0, int(last.Sub(first).Hours()/24)+1)

	prev := sorted[0]
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if b, ok := byDay[contracts.DateKey(d)]; ok {
			out = append(out, b)
			prev = b
			continue
		}
		out = append(out, contracts.Bar{
			Code:      prev.Code,
			TradeDate: d,
			Open:      prev.Close,
			Close:     prev.Close,
			High:      prev.Close,
			Low:       prev.Close,
			Volume:    0,
			PE:        prev.PE,
			PB:        prev.PB,
		})
	}
	return out
}
