// ratelimit.go implements token-bucket rate limiting for the upstream
// Polymarket APIs this pipeline reads from.
//
// Upstream enforces per-endpoint-class limits measured in requests per
// 10-second window. This file provides a smooth token-bucket implementation
// that refills continuously (rather than in 10s bursts) to avoid hitting
// hard limits and to spread load evenly across the window.
//
// Four buckets are maintained, one per Class.
package httpclient

import (
	"context"
	"sync"
	"time"

	"polymarket-ingestor/internal/config"
	"polymarket-ingestor/internal/metrics"
)

// Class identifies an upstream endpoint category for rate-limiting and
// metrics purposes.
type Class string

const (
	ClassPositions       Class = "positions"
	ClassClosedPositions Class = "closed_positions"
	ClassTrades          Class = "trades"
	ClassGeneral         Class = "general"
)

// TokenBucket implements a token-bucket rate limiter with continuous refill.
// Callers block in Wait() until a token is available or the context is
// cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// retry
		}
	}
}

// RateLimiter groups token buckets by upstream endpoint class. Every
// request must call the appropriate bucket's Wait() before being sent.
type RateLimiter struct {
	buckets map[Class]*TokenBucket
}

// NewRateLimiter creates rate limiters tuned to the configured per-window
// budgets. Capacities are set to the full window allowance, rates to
// allowance/window-seconds for smooth refill. GENERAL is the most conservative of
// the three named classes, since it covers endpoints (events, markets,
// leaderboard) with no published budget of their own.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	windowSeconds := cfg.Window.Seconds()
	if windowSeconds <= 0 {
		windowSeconds = 10
	}

	general := cfg.PositionsPerWindow
	if cfg.ClosedPositionsPerWindow < general {
		general = cfg.ClosedPositionsPerWindow
	}
	if cfg.TradesPerWindow < general {
		general = cfg.TradesPerWindow
	}

	return &RateLimiter{
		buckets: map[Class]*TokenBucket{
			ClassPositions:       NewTokenBucket(cfg.PositionsPerWindow, cfg.PositionsPerWindow/windowSeconds),
			ClassClosedPositions: NewTokenBucket(cfg.ClosedPositionsPerWindow, cfg.ClosedPositionsPerWindow/windowSeconds),
			ClassTrades:          NewTokenBucket(cfg.TradesPerWindow, cfg.TradesPerWindow/windowSeconds),
			ClassGeneral:         NewTokenBucket(general, general/windowSeconds),
		},
	}
}

// Wait blocks until a token for the given class is available, recording
// the wait time to the rate-limit-wait histogram.
func (rl *RateLimiter) Wait(ctx context.Context, class Class) error {
	start := time.Now()
	bucket, ok := rl.buckets[class]
	if !ok {
		bucket = rl.buckets[ClassGeneral]
	}
	err := bucket.Wait(ctx)
	metrics.RateLimitWaitSeconds.WithLabelValues(string(class)).Observe(time.Since(start).Seconds())
	return err
}
