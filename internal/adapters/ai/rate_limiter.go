package ai

import (
	"context"
	"sync"
	"time"

	"scribe/pkg/errors"
)

// RateLimiter throttles outbound provider requests.
type RateLimiter interface {
	// Wait blocks until a request can proceed or the context is cancelled.
	Wait(ctx context.Context) error

	// Allow reports whether a request can proceed without blocking.
	Allow() bool
}

// TokenBucketLimiter implements token bucket rate limiting.
// Thread-safe and suitable for concurrent callers.
type TokenBucketLimiter struct {
	rate       float64 // requests per second
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
	provider   ProviderName
}

// NewTokenBucketLimiter creates a limiter allowing reqPerMinute requests
// with the given burst capacity.
func NewTokenBucketLimiter(provider ProviderName, reqPerMinute float64, burst int) *TokenBucketLimiter {
	if burst <= 0 {
		burst = int(reqPerMinute / 10)
		if burst < 1 {
			burst = 1
		}
	}

	return &TokenBucketLimiter{
		rate:       reqPerMinute / 60.0,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
		provider:   provider,
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		l.mu.Lock()
		waitTime := time.Duration(float64(time.Second) / l.rate)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "rate limiter wait cancelled for provider %s", l.provider)
		case <-time.After(waitTime):
		}
	}
}

// Allow consumes a token if one is available.
func (l *TokenBucketLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.tokens += elapsed * l.rate

	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	l.lastUpdate = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}

	return false
}

// NoOpLimiter never blocks. Used when rate limiting is disabled.
type NoOpLimiter struct{}

func NewNoOpLimiter() *NoOpLimiter { return &NoOpLimiter{} }

func (l *NoOpLimiter) Wait(ctx context.Context) error { return nil }

func (l *NoOpLimiter) Allow() bool { return true }

// newLimiter picks a limiter for the configured per-minute rate.
// A zero or negative rate disables limiting.
func newLimiter(provider ProviderName, reqPerMinute float64, burst int) RateLimiter {
	if reqPerMinute <= 0 {
		return NewNoOpLimiter()
	}
	return NewTokenBucketLimiter(provider, reqPerMinute, burst)
}
