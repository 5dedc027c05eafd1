// Package memstore is an in-memory bar store and calendar for offline backtests and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// Store implements contracts.BarStore in memory
type Store struct {
	mu     sync.RWMutex
	byDate map[string]map[string]contracts.Bar // date -> code -> bar
}

func New(bars ...contracts.Bar) *Store {
	s := &Store{byDate: make(map[string]map[string]contracts.Bar)}
	s.Put(bars...)
	return s
}

// Put inserts or replaces bars
func (s *Store) Put(bars ...contracts.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		b.TradeDate = contracts.Day(b.TradeDate)
		key := contracts.DateKey(b.TradeDate)
		day, ok := s.byDate[key]
		if !ok {
			day = make(map[string]contracts.Bar)
			s.byDate[key] = day
		}
		day[b.Code] = b
	}
}

// SaveBars is Put with the repository signature
func (s *Store) SaveBars(_ context.Context, bars []contracts.Bar) error {
	s.Put(bars...)
	return nil
}

// Len counts stored bars
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, day := range s.byDate {
		n += len(day)
	}
	return n
}

func (s *Store) Find(ctx context.Context, q contracts.Query) ([]contracts.Bar, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []contracts.Bar
	if !q.TradeDate.IsZero() {
		for _, b := range s.byDate[contracts.DateKey(q.TradeDate)] {
			if q.Matches(b) {
				out = append(out, b)
			}
		}
	} else {
		for _, day := range s.byDate {
			for _, b := range day {
				if q.Matches(b) {
					out = append(out, b)
				}
			}
		}
	}
	s.mu.RUnlock()

	sortBars(out, q.SortBy, q.Direction)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if len(q.Fields) > 0 {
		for i := range out {
			out[i] = project(out[i], q.Fields)
		}
	}
	return out, nil
}

func (s *Store) FindOne(_ context.Context, date time.Time, code string) (*contracts.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byDate[contracts.DateKey(date)][code]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", code, contracts.DateKey(date), contracts.ErrRecordNotFound)
	}
	return &b, nil
}

// History returns bars of code in [from, to], ascending
func (s *Store) History(_ context.Context, code string, from, to time.Time) ([]contracts.Bar, error) {
	from, to = contracts.Day(from), contracts.Day(to)

	s.mu.RLock()
	var out []contracts.Bar
	for _, day := range s.byDate {
		b, ok := day[code]
		if !ok || b.TradeDate.Before(from) || b.TradeDate.After(to) {
			continue
		}
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

// DateRange returns the first and last trade date of code
func (s *Store) DateRange(ctx context.Context, code string) (first, last time.Time, ok bool, err error) {
	bars, err := s.History(ctx, code, time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil || len(bars) == 0 {
		return time.Time{}, time.Time{}, false, err
	}
	return bars[0].TradeDate, bars[len(bars)-1].TradeDate, true, nil
}

// sortBars orders by field then code; without a field by code then date
func sortBars(bars []contracts.Bar, by contracts.Field, dir contracts.Direction) {
	sort.SliceStable(bars, func(i, j int) bool {
		a, b := bars[i], bars[j]
		if by != "" && by != contracts.FieldCode {
			va, _ := a.Metric(by)
			vb, _ := b.Metric(by)
			if by == contracts.FieldTradeDate {
				va, vb = float64(a.TradeDate.Unix()), float64(b.TradeDate.Unix())
			}
			if va != vb {
				if dir == contracts.Descending {
					return va > vb
				}
				return va < vb
			}
			return a.Code < b.Code
		}
		if a.Code != b.Code {
			if by == contracts.FieldCode && dir == contracts.Descending {
				return a.Code > b.Code
			}
			return a.Code < b.Code
		}
		return a.TradeDate.Before(b.TradeDate)
	})
}

func project(b contracts.Bar, fields []contracts.Field) contracts.Bar {
	var out contracts.Bar
	for _, f := range fields {
		switch f {
		case contracts.FieldCode:
			out.Code = b.Code
		case contracts.FieldTradeDate:
			out.TradeDate = b.TradeDate
		case contracts.FieldOpen:
			out.Open = b.Open
		case contracts.FieldClose:
			out.Close = b.Close
		case contracts.FieldHigh:
			out.High = b.High
		case contracts.FieldLow:
			out.Low = b.Low
		case contracts.FieldVolume:
			out.Volume = b.Volume
		case contracts.FieldPE:
			out.PE = b.PE
		case contracts.FieldPB:
			out.PB = b.PB
		}
	}
	return out
}
