package selection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/pkg/logger"
)

// Selector builds the pool of every rebalancing date
// ⭐ SSOT: 종목 풀 선정 로직은 여기서만
type Selector struct {
	calendar contracts.Calendar
	store    contracts.PriceLookup
	logger   *logger.Logger
}

func NewSelector(calendar contracts.Calendar, store contracts.PriceLookup, log *logger.Logger) *Selector {
	return &Selector{
		calendar: calendar,
		store:    store,
		logger:   log.WithComponent("selector"),
	}
}

// SelectPools walks the trading calendar with stride p.Interval and records one pool per
// rebalancing date. Each pool starts with the carried members of the previous pool, in
// their previous order, and is topped up from the ranked candidates.
func (s *Selector) SelectPools(ctx context.Context, p Params) (*contracts.Pools, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dates, err := s.calendar.TradingDates(ctx, p.Market, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("trading dates: %w", err)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%s..%s: %w", contracts.DateKey(p.Start), contracts.DateKey(p.End), contracts.ErrEmptyCalendar)
	}

	pools := contracts.NewPools()
	var prior []string
	for i := 0; i < len(dates); i += p.Interval {
		d := dates[i]

		pool, err := s.selectOne(ctx, d, prior, p)
		if err != nil {
			return nil, fmt.Errorf("select pool on %s: %w", contracts.DateKey(d), err)
		}
		pools.Add(d, pool)
		prior = pool

		s.logger.WithFields(map[string]interface{}{
			"date": contracts.DateKey(d),
			"size": len(pool),
		}).Debug("Pool selected")
	}

	s.logger.WithFields(map[string]interface{}{
		"trading_days":    len(dates),
		"rebalance_dates": pools.Len(),
		"rank_by":         string(p.RankBy),
		"range":           p.Range.String(),
		"pool_size":       p.PoolSize,
		"carry_policy":    string(p.CarryPolicy),
	}).Info("Pools selected")
	return pools, nil
}

// selectOne issues the candidate and carry queries of date d concurrently and merges them
func (s *Selector) selectOne(ctx context.Context, d time.Time, prior []string, p Params) ([]string, error) {
	var (
		wg                  sync.WaitGroup
		candidates, carried []contracts.Bar
		candErr, carryErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		candidates, candErr = s.store.Find(ctx, contracts.Query{
			TradeDate:   d,
			Metric:      p.RankBy,
			MetricRange: &contracts.Range{Lo: p.Range.Lo, Hi: p.Range.Hi},
			Volume:      contracts.VolumeActive,
			Fields:      []contracts.Field{contracts.FieldCode},
			SortBy:      p.RankBy,
			Direction:   p.Direction,
			// carried members may also rank; fetch enough to still fill every slot
			Limit: p.PoolSize + len(prior),
		})
	}()

	if len(prior) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			carried, carryErr = s.store.Find(ctx, contracts.Query{
				TradeDate: d,
				Codes:     prior,
				Volume:    p.CarryPolicy.volumeFilter(),
				Fields:    []contracts.Field{contracts.FieldCode},
			})
		}()
	}

	wg.Wait()
	if candErr != nil {
		return nil, fmt.Errorf("candidates: %w", candErr)
	}
	if carryErr != nil {
		return nil, fmt.Errorf("carry over: %w", carryErr)
	}

	return mergePool(prior, carried, candidates, p.PoolSize), nil
}

// mergePool keeps the carried codes in prior order, then appends ranked candidates
// that are not already held, up to size
func mergePool(prior []string, carried, candidates []contracts.Bar, size int) []string {
	keep := make(map[string]struct{}, len(carried))
	for _, b := range carried {
		keep[b.Code] = struct{}{}
	}

	pool := make([]string, 0, size)
	held := make(map[string]struct{}, size)
	for _, code := range prior {
		if len(pool) == size {
			break
		}
		if _, ok := keep[code]; ok {
			if _, dup := held[code]; !dup {
				pool = append(pool, code)
				held[code] = struct{}{}
			}
		}
	}

	for _, b := range candidates {
		if len(pool) == size {
			break
		}
		if _, dup := held[b.Code]; dup {
			continue
		}
		pool = append(pool, b.Code)
		held[b.Code] = struct{}{}
	}
	return pool
}
