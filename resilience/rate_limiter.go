package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/pipeline"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Rate is the number of requests allowed per second.
	Rate float64
	// Burst is the maximum burst size.
	Burst int
	// Wait blocks for a token instead of rejecting when the bucket is empty.
	Wait bool
	// OnLimit is called when a request is rate limited.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token-bucket pipeline strategy that controls the rate
// of wrapped executions.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter, filling zero config fields with
// defaults.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
	}
	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Name implements pipeline.Strategy.
func (rl *RateLimiter) Name() string { return "rate-limiter" }

// Execute implements pipeline.Strategy. Without Wait, a call that finds
// the bucket empty fails with RATE_LIMITED without invoking the wrapped
// operation; with Wait, it blocks for a token or the ctx.
func (rl *RateLimiter) Execute(ctx context.Context, ec *pipeline.Context, next pipeline.Operation) (any, error) {
	if rl.config.Wait {
		if err := rl.wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, ec)
	}

	if !rl.Allow() {
		return nil, errors.New(errors.ErrCodeRateLimited, "rate limit exceeded").
			WithDetail("name", rl.config.Name)
	}
	return next(ctx, ec)
}

// Allow checks if a request is allowed without blocking.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN checks if n requests are allowed without blocking.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}

	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) wait(ctx context.Context) error {
	if rl.AllowN(1) {
		return nil
	}

	waitTime := rl.reserveN(1)
	if waitTime <= 0 {
		return nil
	}

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refill adds tokens based on time elapsed. Callers hold rl.mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// reserveN reserves n tokens and returns the wait time.
func (rl *RateLimiter) reserveN(n int) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return 0
	}

	needed := float64(n) - rl.tokens
	rl.tokens -= float64(n)

	return time.Duration(needed / rl.config.Rate * float64(time.Second))
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}
