package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// ErrRateLimitExceeded is returned by TryAcquire when no token is available.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket implements a per-key token bucket rate limiter. Acquire blocks
// until a token is available or ctx is done.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int           // max tokens per bucket
	refillRate time.Duration // time between token refills, zero disables limiting
	now        func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket creates a new token bucket rate limiter.
func NewTokenBucket(capacity int, refillRate time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
		now:        time.Now,
	}
}

// Acquire waits for a token for key. Tokens are consumed, not returned: the
// release func is a no-op kept for the RateLimiter port.
func (tb *TokenBucket) Acquire(ctx context.Context, key string) (release func(), err error) {
	for {
		wait, ok := tb.take(key)
		if ok {
			return func() {}, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token without waiting.
func (tb *TokenBucket) TryAcquire(key string) error {
	if _, ok := tb.take(key); !ok {
		return ErrRateLimitExceeded
	}
	return nil
}

// take consumes a token if one is available, otherwise it reports how long
// until the next refill.
func (tb *TokenBucket) take(key string) (time.Duration, bool) {
	if tb.refillRate <= 0 {
		return 0, true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill)
	if add := int(elapsed / tb.refillRate); add > 0 {
		b.tokens = min(b.tokens+add, tb.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(add) * tb.refillRate)
	}
	if b.tokens >= tb.capacity {
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return tb.refillRate - now.Sub(b.lastRefill), false
	}
	b.tokens--
	return 0, true
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
