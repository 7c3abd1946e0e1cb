// Package metrics exposes the Prometheus counters, histograms and gauges
// the rate-limited HTTP client and the schedulers record against.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts every upstream request by endpoint class and
	// outcome (ok, not_found, rate_limited, server_error, client_error,
	// transport_error).
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestor_http_requests_total",
		Help: "Upstream HTTP requests by rate-limit class and outcome.",
	}, []string{"class", "outcome"})

	// RequestDuration observes request latency from after the token bucket
	// admits the request; time spent blocked on the bucket is recorded
	// separately by RateLimitWaitSeconds.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestor_http_request_duration_seconds",
		Help:    "Upstream HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"class"})

	// RateLimitWaitSeconds observes how long a request blocked waiting for
	// a token bucket to admit it.
	RateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestor_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate-limit token.",
		Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"class"})

	// SchedulerTickDuration observes how long each scheduler tick took.
	SchedulerTickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestor_scheduler_tick_duration_seconds",
		Help:    "Scheduler tick duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scheduler"})

	// SchedulerTicksSkipped counts ticks skipped because the previous tick
	// of the same scheduler was still running (max_instances=1 semantics).
	SchedulerTicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestor_scheduler_ticks_skipped_total",
		Help: "Scheduler ticks skipped because a prior tick was still in flight.",
	}, []string{"scheduler"})

	// WalletsProcessed counts wallets processed per scheduler, by outcome.
	WalletsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestor_wallets_processed_total",
		Help: "Wallets processed per scheduler run, by outcome.",
	}, []string{"scheduler", "outcome"})
)
