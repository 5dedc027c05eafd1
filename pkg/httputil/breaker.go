package httputil

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Breakers holds one circuit breaker per host.
// A breaker trips after 3 consecutive failures, or a >5% failure ratio once 20 requests were seen.
type Breakers struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	timeout  time.Duration
}

func NewBreakers(openTimeout time.Duration) *Breakers {
	return &Breakers{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		timeout:  openTimeout,
	}
}

func (b *Breakers) get(host string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     host,
		Interval: 60 * time.Second,
		Timeout:  b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	})
	b.breakers[host] = cb
	return cb
}

// Execute runs fn through the host's breaker
func (b *Breakers) Execute(host string, fn func() (interface{}, error)) (interface{}, error) {
	return b.get(host).Execute(fn)
}

// State reports the breaker state for host ("closed" when never used)
func (b *Breakers) State(host string) string {
	return b.get(host).State().String()
}
