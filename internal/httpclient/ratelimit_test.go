package httpclient

import (
	"context"
	"testing"
	"time"

	"polymarket-ingestor/internal/config"
)

func TestNewTokenBucketStartsFull(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(10, 1)
	if tb.tokens != 10 {
		t.Errorf("tokens = %v, want 10", tb.tokens)
	}
}

func TestTokenBucketWaitImmediate(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(5, 1)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := tb.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() returned error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("Wait() took %v, expected immediate (token %d)", elapsed, i)
		}
	}
}

func TestTokenBucketWaitBlocks(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(1, 10)

	if err := tb.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("expected blocking ~100ms, got %v", elapsed)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("blocked too long: %v", elapsed)
	}
}

func TestTokenBucketContextCancelled(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(1, 0.1)

	_ = tb.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("expected context error, got nil")
	}
}

func TestRateLimiterFallsBackToGeneral(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(config.RateLimitConfig{
		PositionsPerWindow:       120,
		ClosedPositionsPerWindow: 120,
		TradesPerWindow:          160,
		Window:                   10 * time.Second,
	})

	if err := rl.Wait(context.Background(), Class("unknown")); err != nil {
		t.Fatalf("expected fallback to general bucket, got error: %v", err)
	}
}

func TestRateLimiterGeneralIsMostConservative(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(config.RateLimitConfig{
		PositionsPerWindow:       120,
		ClosedPositionsPerWindow: 90,
		TradesPerWindow:          160,
		Window:                   10 * time.Second,
	})

	general := rl.buckets[ClassGeneral]
	if general.capacity != 90 {
		t.Errorf("general capacity = %v, want 90 (min of the three)", general.capacity)
	}
}
