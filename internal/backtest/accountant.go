package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/pkg/logger"
)

// EmptyPeriodPolicy decides what happens when no holding of a period is priced on both sides
type EmptyPeriodPolicy string

const (
	// EmptyPeriodFail aborts the run with ErrNoPricedHoldings
	EmptyPeriodFail EmptyPeriodPolicy = "fail"
	// EmptyPeriodCarry records a zero return and keeps the net value
	EmptyPeriodCarry EmptyPeriodPolicy = "carry"
)

func ParseEmptyPeriodPolicy(s string) (EmptyPeriodPolicy, error) {
	switch EmptyPeriodPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", EmptyPeriodFail:
		return EmptyPeriodFail, nil
	case EmptyPeriodCarry:
		return EmptyPeriodCarry, nil
	default:
		return "", fmt.Errorf("%w: empty period policy must be fail or carry (got %q)", contracts.ErrInvalidParams, s)
	}
}

// Options tunes ComputeReturns
type Options struct {
	EmptyPeriodPolicy EmptyPeriodPolicy

	// ReferenceTruncation drops the final rebalancing date from the series,
	// matching curves produced by the legacy research scripts
	ReferenceTruncation bool

	// PeriodStart and PeriodEnd are the configured run period. The annualized
	// return spans their calendar years; zero values fall back to the curve's own dates.
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// yearSpan counts the calendar years the annualized return is spread over
func (o Options) yearSpan(series *contracts.NetValueSeries) int {
	start, end := series.Start, series.End
	if !o.PeriodStart.IsZero() {
		start = o.PeriodStart
	}
	if !o.PeriodEnd.IsZero() {
		end = o.PeriodEnd
	}
	return contracts.YearSpan(start, end)
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Accountant turns a pool sequence into a net value curve against a benchmark
// ⭐ SSOT: 수익률 누적 계산은 여기서만
type Accountant struct {
	prices contracts.PriceLookup
	logger *logger.Logger
}

func NewAccountant(prices contracts.PriceLookup, log *logger.Logger) *Accountant {
	return &Accountant{
		prices: prices,
		logger: log.WithComponent("accountant"),
	}
}

// ComputeReturns is a convenience wrapper around Accountant without logging
func ComputeReturns(ctx context.Context, pools *contracts.Pools, prices contracts.PriceLookup, benchmarkCode string, opts Options) (*contracts.NetValueSeries, error) {
	return NewAccountant(prices, logger.NewNop()).ComputeReturns(ctx, pools, benchmarkCode, opts)
}

// ComputeReturns holds Pool[prev] from prev to curr for every consecutive pair of
// rebalancing dates and compounds the equal-weight average return into a net value.
// The first date is seeded with net value 1.0 and zero returns.
func (a *Accountant) ComputeReturns(ctx context.Context, pools *contracts.Pools, benchmarkCode string, opts Options) (*contracts.NetValueSeries, error) {
	if opts.EmptyPeriodPolicy == "" {
		opts.EmptyPeriodPolicy = EmptyPeriodFail
	}

	dates := pools.Dates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("no rebalancing dates: %w", contracts.ErrEmptyCalendar)
	}
	last := len(dates)
	if opts.ReferenceTruncation && last > 1 {
		last--
	}

	benchBase, err := a.benchmarkClose(ctx, benchmarkCode, dates[0])
	if err != nil {
		return nil, err
	}

	series := &contracts.NetValueSeries{
		Points: make([]contracts.NetValuePoint, 0, last),
		Start:  dates[0],
	}
	series.Points = append(series.Points, contracts.NetValuePoint{
		Date:         dates[0],
		NetValue:     1.0,
		Participants: len(pools.Get(dates[0])),
	})

	net := one
	for i := 1; i < last; i++ {
		prev, curr := dates[i-1], dates[i]

		ret, n, err := a.periodReturn(ctx, pools.Get(prev), prev, curr)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if opts.EmptyPeriodPolicy == EmptyPeriodFail {
				return nil, fmt.Errorf("%s..%s: %w", contracts.DateKey(prev), contracts.DateKey(curr), contracts.ErrNoPricedHoldings)
			}
			a.logger.WithFields(map[string]interface{}{
				"from": contracts.DateKey(prev),
				"to":   contracts.DateKey(curr),
			}).Warn("No priced holdings, carrying net value")
		}

		net = net.Mul(one.Add(ret))

		benchClose, err := a.benchmarkClose(ctx, benchmarkCode, curr)
		if err != nil {
			return nil, err
		}

		series.Points = append(series.Points, contracts.NetValuePoint{
			Date:                curr,
			NetValue:            net.InexactFloat64(),
			PeriodReturn:        ret.InexactFloat64(),
			CumulativeReturnPct: net.Sub(one).Mul(hundred).Round(4).InexactFloat64(),
			BenchmarkReturnPct:  benchClose.Sub(benchBase).Div(benchBase).Mul(hundred).Round(4).InexactFloat64(),
			Participants:        n,
		})
	}

	series.End = series.Points[len(series.Points)-1].Date
	series.AnnualizedReturn = contracts.Annualize(series.FinalNetValue(), opts.yearSpan(series))
	series.Stats = computeStats(series.Points)

	a.logger.WithFields(map[string]interface{}{
		"points":     len(series.Points),
		"net_value":  series.FinalNetValue(),
		"annualized": fmt.Sprintf("%.2f%%", series.AnnualizedReturn*100),
	}).Debug("Returns computed")
	return series, nil
}

// periodReturn averages (sell-buy)/buy over codes priced on both dates with a positive buy price
func (a *Accountant) periodReturn(ctx context.Context, codes []string, prev, curr time.Time) (decimal.Decimal, int, error) {
	if len(codes) == 0 {
		return decimal.Zero, 0, nil
	}

	buy, err := a.closes(ctx, prev, codes)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("buy prices on %s: %w", contracts.DateKey(prev), err)
	}
	sell, err := a.closes(ctx, curr, codes)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sell prices on %s: %w", contracts.DateKey(curr), err)
	}

	sum := decimal.Zero
	n := 0
	for _, code := range codes {
		b, ok := buy[code]
		if !ok || !b.IsPositive() {
			continue
		}
		s, ok := sell[code]
		if !ok {
			continue
		}
		sum = sum.Add(s.Sub(b).Div(b))
		n++
	}
	if n == 0 {
		return decimal.Zero, 0, nil
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(4), n, nil
}

func (a *Accountant) closes(ctx context.Context, date time.Time, codes []string) (map[string]decimal.Decimal, error) {
	bars, err := a.prices.Find(ctx, contracts.Query{
		TradeDate: date,
		Codes:     codes,
		Fields:    []contracts.Field{contracts.FieldCode, contracts.FieldClose},
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(bars))
	for _, b := range bars {
		out[b.Code] = decimal.NewFromFloat(b.Close)
	}
	return out, nil
}

func (a *Accountant) benchmarkClose(ctx context.Context, code string, date time.Time) (decimal.Decimal, error) {
	closes, err := a.closes(ctx, date, []string{code})
	if err != nil {
		return decimal.Zero, fmt.Errorf("benchmark %s on %s: %w", code, contracts.DateKey(date), err)
	}
	c, ok := closes[code]
	if !ok || !c.IsPositive() {
		return decimal.Zero, fmt.Errorf("benchmark %s on %s: %w", code, contracts.DateKey(date), contracts.ErrMissingBenchmarkRecord)
	}
	return c, nil
}
