// Package scheduler drives every periodic ingestion job off its own
// ticker, the same driving idiom the teacher's risk manager and market
// scanner use (a ticker loop select-ing against ctx.Done()), generalized
// here with a mutex guard so a tick still running when its ticker fires
// again is skipped rather than overlapped — the max_instances=1 semantics
// every upstream scheduler relies on.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"polymarket-ingestor/internal/metrics"
)

// Stats summarizes one scheduler tick's outcome.
type Stats struct {
	Processed int
	Succeeded int
	Failed    int
	Message   string
}

// TickFunc runs one scheduler tick to completion.
type TickFunc func(ctx context.Context) (Stats, error)

// Runner drives a single TickFunc on a fixed interval, skipping a tick if
// the previous one is still in flight.
type Runner struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   zerolog.Logger

	running chan struct{} // acts as a 1-slot semaphore/mutex
}

// NewRunner creates a Runner for the named job.
func NewRunner(name string, interval time.Duration, tick TickFunc, logger zerolog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.With().Str("scheduler", name).Logger(),
		running:  make(chan struct{}, 1),
	}
}

// Start runs the ticker loop until ctx is cancelled. Intended to be
// launched as its own goroutine by the process entry point, one per
// scheduler.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

// RunOnce triggers a single tick synchronously, honoring the same
// in-flight guard — used by the on-demand trigger endpoints.
func (r *Runner) RunOnce(ctx context.Context) (Stats, error) {
	select {
	case r.running <- struct{}{}:
	default:
		metrics.SchedulerTicksSkipped.WithLabelValues(r.name).Inc()
		return Stats{Message: "tick already in progress"}, nil
	}
	defer func() { <-r.running }()

	return r.doTick(ctx)
}

func (r *Runner) runTick(ctx context.Context) {
	select {
	case r.running <- struct{}{}:
	default:
		metrics.SchedulerTicksSkipped.WithLabelValues(r.name).Inc()
		r.logger.Warn().Msg("skipping tick, previous run still in flight")
		return
	}
	defer func() { <-r.running }()

	stats, err := r.doTick(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("tick failed")
		return
	}
	r.logger.Info().
		Int("processed", stats.Processed).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Msg("tick completed")
}

func (r *Runner) doTick(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats, err := r.tick(ctx)
	metrics.SchedulerTickDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	return stats, err
}
