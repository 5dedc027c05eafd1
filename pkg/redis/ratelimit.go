package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps request timestamps in a sorted set.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// RateLimiter is a sliding-window limiter shared by every process using the same Redis
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	cfg    RateLimitConfig
	poll   time.Duration
}

// RateLimitConfig defines one window
type RateLimitConfig struct {
	Key    string // provider name, e.g. "naver"
	Limit  int
	Window time.Duration
}

// NaverRateLimit is conservative: Naver blocks aggressive crawlers
var NaverRateLimit = RateLimitConfig{Key: "naver", Limit: 5, Window: time.Second}

func NewRateLimiter(client *Client, prefix string, cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, cfg: cfg, poll: 100 * time.Millisecond}
}

// Allow reports whether one more request fits the window, and how many remain
func (r *RateLimiter) Allow(ctx context.Context) (bool, int, error) {
	if !r.client.Enabled() {
		return true, r.cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, r.cfg.Key)
	now := time.Now().UnixMilli()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		now-r.cfg.Window.Milliseconds(),
		r.cfg.Limit,
		r.cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until Allow succeeds or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		allowed, _, err := r.Allow(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}
