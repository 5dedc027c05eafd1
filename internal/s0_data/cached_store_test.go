package s0_data

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/memstore"
	"github.com/wonny/valuepool/internal/selection"
	"github.com/wonny/valuepool/pkg/logger"
)

// memCache is an in-process stand-in for redis.Cache with the same JSON round trip
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) GetOrSet(_ context.Context, key string, dest interface{}, _ time.Duration, fn func() (interface{}, error)) error {
	c.mu.Lock()
	data, ok := c.data[key]
	if ok {
		c.hits++
	}
	c.mu.Unlock()
	if ok {
		return json.Unmarshal(data, dest)
	}

	value, err := fn()
	if err != nil {
		return err
	}
	if data, err = json.Marshal(value); err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = data
	c.mu.Unlock()
	return json.Unmarshal(data, dest)
}

type countingStore struct {
	*memstore.Store
	mu    sync.Mutex
	finds int
}

func (s *countingStore) Find(ctx context.Context, q contracts.Query) ([]contracts.Bar, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.Store.Find(ctx, q)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

func TestCachedStore_FindServesDatePinnedQueries(t *testing.T) {
	store := &countingStore{Store: indexStore()}
	cache := newMemCache()
	cached := NewCachedStore(store, cache)
	ctx := context.Background()

	q := contracts.Query{TradeDate: d("2024-01-08"), Codes: []string{"KOSPI"}}

	first, err := cached.Find(ctx, q)
	require.NoError(t, err)
	second, err := cached.Find(ctx, q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, 2567.0, second[0].Close)
	assert.Equal(t, d("2024-01-08"), second[0].TradeDate)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, cache.hits)

	// a different code set is a different key
	_, err = cached.Find(ctx, contracts.Query{TradeDate: d("2024-01-08"), Codes: []string{"KOSDAQ"}})
	require.NoError(t, err)
	assert.Equal(t, 2, store.count())

	// range queries always reach the store
	for i := 0; i < 2; i++ {
		_, err = cached.Find(ctx, contracts.Query{Codes: []string{"KOSPI"}})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, store.count())
}

func TestQueryKey(t *testing.T) {
	base := contracts.Query{TradeDate: d("2024-01-08"), Codes: []string{"A", "B"}}

	k1, err := QueryKey(base)
	require.NoError(t, err)
	assert.Contains(t, k1, "bars:2024-01-08:")

	seoul := time.FixedZone("KST", 9*3600)
	same := base
	same.TradeDate = time.Date(2024, 1, 8, 0, 0, 0, 0, seoul)
	k2, err := QueryKey(same)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same calendar date")

	variants := []contracts.Query{
		{TradeDate: d("2024-01-08"), Codes: []string{"A"}},
		{TradeDate: d("2024-01-08"), Codes: []string{}},
		{TradeDate: d("2024-01-08")},
		{TradeDate: d("2024-01-08"), Codes: []string{"A", "B"}, Volume: contracts.VolumeActive},
		{TradeDate: d("2024-01-08"), Codes: []string{"A", "B"}, Metric: contracts.FieldPE, MetricRange: &contracts.Range{Lo: 0, Hi: 10}},
	}
	for _, v := range variants {
		k, err := QueryKey(v)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k)
	}
}

func TestCachedStore_BacktestRerunHitsCache(t *testing.T) {
	days := []time.Time{
		d("2024-05-06"), d("2024-05-07"), d("2024-05-08"),
		d("2024-05-09"), d("2024-05-10"), d("2024-05-13"),
	}
	mem := memstore.New()
	for i, day := range days {
		mem.Put(
			contracts.Bar{Code: "A", TradeDate: day, Close: 10 + float64(i), PE: 2, Volume: 10},
			contracts.Bar{Code: "B", TradeDate: day, Close: 20 - float64(i), PE: 3, Volume: 10},
			contracts.Bar{Code: "BM", TradeDate: day, Close: 100 + float64(i), Volume: 1000},
		)
	}
	store := &countingStore{Store: mem}
	engine := backtest.NewEngine(memstore.NewStaticCalendar(days...), NewCachedStore(store, newMemCache()), nil, nil, logger.NewNop())

	cfg := backtest.Config{
		Selection: selection.Params{
			Start:    days[0],
			End:      days[len(days)-1],
			RankBy:   contracts.FieldPE,
			Range:    contracts.Range{Lo: 0, Hi: 10},
			PoolSize: 2,
			Interval: 2,
		},
		BenchmarkCode: "BM",
	}

	first, err := engine.Run(context.Background(), cfg)
	require.NoError(t, err)
	cold := store.count()
	require.Positive(t, cold)

	second, err := engine.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cold, store.count(), "warm run is served from the cache")
	assert.Equal(t, first.Series.Points, second.Series.Points)
	assert.Equal(t, first.Pools.Dates(), second.Pools.Dates())
}
