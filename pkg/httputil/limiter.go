package httputil

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wonny/valuepool/pkg/redis"
)

// Limiter throttles outgoing requests per host
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// HostLimiter is an in-process token bucket per host
type HostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *HostLimiter) get(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[host] = lim
	return lim
}

func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	return l.get(host).Wait(ctx)
}

// Allow takes a token without blocking
func (l *HostLimiter) Allow(host string) bool {
	return l.get(host).Allow()
}

// RedisLimiter shares one sliding window across processes. The host is ignored;
// the window key comes from the redis.RateLimitConfig.
type RedisLimiter struct {
	rl *redis.RateLimiter
}

func NewRedisLimiter(rl *redis.RateLimiter) *RedisLimiter {
	return &RedisLimiter{rl: rl}
}

func (l *RedisLimiter) Wait(ctx context.Context, _ string) error {
	return l.rl.Wait(ctx)
}
