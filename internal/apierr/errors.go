// Package apierr defines the sentinel error taxonomy used across the
// ingestion pipeline, the idiomatic-Go re-expression of the typed
// exception hierarchy the upstream framework package distinguishes
// retryable from terminal failures with.
package apierr

import "errors"

var (
	// ErrNotFound means the upstream API returned 404. Callers treat this
	// as a valid "no data" result, never as a failure to retry.
	ErrNotFound = errors.New("upstream: not found")

	// ErrTransientUpstream covers 429/5xx and connection-level failures
	// that the HTTP client already retried and exhausted its attempts on.
	ErrTransientUpstream = errors.New("upstream: transient failure")

	// ErrMalformedUpstream means the response body didn't decode into the
	// expected shape.
	ErrMalformedUpstream = errors.New("upstream: malformed response")

	// ErrInvariant marks a violated internal invariant (e.g. a watermark
	// moving backwards) that should abort the current unit of work rather
	// than be silently tolerated.
	ErrInvariant = errors.New("invariant violated")
)
