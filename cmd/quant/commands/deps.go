package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/external/naver"
	"github.com/wonny/valuepool/internal/s0_data"
	"github.com/wonny/valuepool/internal/s0_data/collector"
	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/database"
	"github.com/wonny/valuepool/pkg/httputil"
	"github.com/wonny/valuepool/pkg/logger"
	"github.com/wonny/valuepool/pkg/redis"
)

const (
	keyPrefix          = "valuepool"
	breakerOpenTimeout = 30 * time.Second
	collectorPause     = 200 * time.Millisecond
)

// loadRuntime loads config and builds the logger, applying the global log flags
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	switch {
	case verbose:
		cfg.LogLevel = "debug"
	case logLevel != "":
		cfg.LogLevel = logLevel
	}
	return cfg, logger.New(cfg), nil
}

func openDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Debug("Connected to database")
	return db, nil
}

// openRedis never fails: an unreachable Redis degrades to the disabled client
func openRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		return redis.Disabled()
	}
	return rc
}

// newNaverClient wires the HTTP stack: per-host breakers plus a shared Redis
// window when Redis is up, a local token bucket otherwise
func newNaverClient(cfg *config.Config, log *logger.Logger, rc *redis.Client) *naver.Client {
	httpClient := httputil.New(log).WithBreakers(httputil.NewBreakers(breakerOpenTimeout))
	if rc.Enabled() {
		httpClient = httpClient.WithLimiter(httputil.NewRedisLimiter(redis.NewRateLimiter(rc, keyPrefix, redis.NaverRateLimit)))
	} else {
		httpClient = httpClient.WithLimiter(httputil.NewHostLimiter(cfg.Collector.RatePerSecond, cfg.Collector.RateBurst))
	}
	return naver.NewClient(httpClient, log, cfg.Naver)
}

// collectStack is everything a crawl needs
type collectStack struct {
	db          *database.DB
	redis       *redis.Client
	status      *collector.SQLiteStatusStore
	naver       *naver.Client
	instruments *s0_data.InstrumentRepository
	collector   *collector.Collector
}

func newCollectStack(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*collectStack, error) {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	status, err := collector.OpenStatusStore(ctx, cfg.Collector.StatusDBPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	rc := openRedis(ctx, cfg, log)
	client := newNaverClient(cfg, log, rc)
	bars := s0_data.NewBarRepository(db.Pool)

	col := collector.New(client, bars, status, collector.NewMetrics(reg), log, collector.Config{
		Workers:      cfg.Collector.Workers,
		SkipPrefixes: cfg.Collector.SkipPrefixes,
		Pause:        collectorPause,
	})

	return &collectStack{
		db:          db,
		redis:       rc,
		status:      status,
		naver:       client,
		instruments: s0_data.NewInstrumentRepository(db.Pool),
		collector:   col,
	}, nil
}

func (s *collectStack) Close() {
	_ = s.status.Close()
	_ = s.redis.Close()
	s.db.Close()
}

// universe lists the stock universe, refreshing it from the listing pages first
func (s *collectStack) universe(ctx context.Context) ([]contracts.Instrument, error) {
	return collector.RefreshUniverse(ctx, s.naver, s.instruments, collector.DefaultMarkets)
}

// newDatabaseEngine wires the engine against PostgreSQL with the Redis read-through cache
func newDatabaseEngine(db *database.DB, rc *redis.Client, cfg *config.Config, sink contracts.ReportSink, metrics *backtest.Metrics, log *logger.Logger) *backtest.Engine {
	bars := s0_data.NewBarRepository(db.Pool)
	cache := redis.NewCache(rc, keyPrefix)
	store := s0_data.NewCachedStore(bars, cache)
	calendar := s0_data.NewCachedCalendar(s0_data.NewIndexCalendar(bars, cfg.Backtest.CalendarIndex), cache)
	return backtest.NewEngine(calendar, store, sink, metrics, log)
}
