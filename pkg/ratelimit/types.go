package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one hit against a key.
type Result struct {
	Allowed   bool
	Limit     int       // hits allowed per window
	Remaining int       // hits left in the current window, never negative
	ResetAt   time.Time // when the current window closes
}

// RetryAfter is the wait until the window closes, or 0 when the hit was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter decides whether a request keyed by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Store counts hits per key in fixed windows.
type Store interface {
	// Increment adds one hit to key and returns the hit count of the current
	// window with its remaining lifetime. The window starts on the first hit.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}
