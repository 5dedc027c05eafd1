package s0_data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/pkg/redis"
)

// Cache is the read-through surface of redis.Cache
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error
}

// CachedStore caches date-pinned queries and point lookups of a BarStore.
// Queries without a TradeDate pass through. Errors are not cached.
type CachedStore struct {
	contracts.BarStore
	cache Cache
	ttl   time.Duration
}

func NewCachedStore(store contracts.BarStore, cache Cache) *CachedStore {
	return &CachedStore{BarStore: store, cache: cache, ttl: redis.TTLDaily}
}

// Find serves the selector's per-date ranking and the accountant's close lookups
func (s *CachedStore) Find(ctx context.Context, q contracts.Query) ([]contracts.Bar, error) {
	if q.TradeDate.IsZero() {
		return s.BarStore.Find(ctx, q)
	}

	key, err := QueryKey(q)
	if err != nil {
		return nil, err
	}

	var bars []contracts.Bar
	err = s.cache.GetOrSet(ctx, key, &bars, s.ttl, func() (interface{}, error) {
		return s.BarStore.Find(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].TradeDate = contracts.Day(bars[i].TradeDate)
	}
	return bars, nil
}

func (s *CachedStore) FindOne(ctx context.Context, date time.Time, code string) (*contracts.Bar, error) {
	var bar contracts.Bar
	err := s.cache.GetOrSet(ctx, redis.BarKey(code, contracts.DateKey(date)), &bar, s.ttl, func() (interface{}, error) {
		return s.BarStore.FindOne(ctx, date, code)
	})
	if err != nil {
		return nil, err
	}
	bar.TradeDate = contracts.Day(bar.TradeDate)
	return &bar, nil
}

// QueryKey addresses a date-pinned query: the date stays readable, the rest is hashed
func QueryKey(q contracts.Query) (string, error) {
	q.TradeDate = contracts.Day(q.TradeDate)
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("query key: %w", err)
	}
	sum := sha256.Sum256(data)
	return redis.QueryKey(contracts.DateKey(q.TradeDate), hex.EncodeToString(sum[:12])), nil
}

// CachedCalendar caches trading date slices
type CachedCalendar struct {
	cal   contracts.Calendar
	cache Cache
	ttl   time.Duration
}

func NewCachedCalendar(cal contracts.Calendar, cache Cache) *CachedCalendar {
	return &CachedCalendar{cal: cal, cache: cache, ttl: redis.TTLLong}
}

func (c *CachedCalendar) TradingDates(ctx context.Context, market string, start, end time.Time) ([]time.Time, error) {
	var dates []time.Time
	key := redis.CalendarKey(market, contracts.DateKey(start), contracts.DateKey(end))
	err := c.cache.GetOrSet(ctx, key, &dates, c.ttl, func() (interface{}, error) {
		return c.cal.TradingDates(ctx, market, start, end)
	})
	if err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = contracts.Day(dates[i])
	}
	return dates, nil
}
