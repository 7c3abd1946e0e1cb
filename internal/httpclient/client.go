// Package httpclient implements the shared rate-limited, retrying REST
// client every upstream Polymarket adapter is built on.
//
// Every request is rate-limited via a per-class TokenBucket, automatically
// retried on 429/5xx/connection errors with exponential backoff, and a 404
// short-circuits retry and is surfaced to the caller as apierr.ErrNotFound
// rather than an error worth retrying.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"polymarket-ingestor/internal/apierr"
	"polymarket-ingestor/internal/config"
	"polymarket-ingestor/internal/metrics"
)

// Client is the shared rate-limited REST client for all upstream adapters.
type Client struct {
	http   *resty.Client
	rl     *RateLimiter
	logger zerolog.Logger
}

// New creates a rate-limited, retrying HTTP client for the given base URL.
func New(baseURL string, cfg config.Config, rl *RateLimiter, logger zerolog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTP.PoolConnections,
		MaxIdleConnsPerHost: cfg.HTTP.PoolMaxSize,
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.HTTP.Timeout).
		SetTransport(transport).
		SetRetryCount(cfg.RateLimit.MaxRetryAttempts).
		SetRetryWaitTime(cfg.RateLimit.RetryMinWait).
		SetRetryMaxWaitTime(cfg.RateLimit.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, rl: rl, logger: logger.With().Str("component", "httpclient").Logger()}
}

// Get issues a rate-limited GET request against path, decoding a 200
// response into result. A 404 returns apierr.ErrNotFound without
// triggering a retry; a transport error, 429 or 5xx after retries returns
// apierr.ErrTransientUpstream; any other status returns a plain error
// carrying the status code and body.
func (c *Client) Get(ctx context.Context, class Class, path string, query map[string]string, result any) error {
	if err := c.rl.Wait(ctx, class); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	req := c.http.R().SetContext(ctx).SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	metrics.RequestDuration.WithLabelValues(string(class)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RequestsTotal.WithLabelValues(string(class), "transport_error").Inc()
		return fmt.Errorf("%s: %w: %v", path, apierr.ErrTransientUpstream, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		metrics.RequestsTotal.WithLabelValues(string(class), "ok").Inc()
		return nil
	case http.StatusNotFound:
		metrics.RequestsTotal.WithLabelValues(string(class), "not_found").Inc()
		return fmt.Errorf("%s: %w", path, apierr.ErrNotFound)
	case http.StatusTooManyRequests:
		metrics.RequestsTotal.WithLabelValues(string(class), "rate_limited").Inc()
		return fmt.Errorf("%s: %w: status %d", path, apierr.ErrTransientUpstream, resp.StatusCode())
	default:
		if resp.StatusCode() >= 500 {
			metrics.RequestsTotal.WithLabelValues(string(class), "server_error").Inc()
			return fmt.Errorf("%s: %w: status %d", path, apierr.ErrTransientUpstream, resp.StatusCode())
		}
		metrics.RequestsTotal.WithLabelValues(string(class), "client_error").Inc()
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
}
