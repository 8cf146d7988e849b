package ratelimit

import (
	"context"
	"errors"
	"time"
)

// FixedWindow allows Limit hits per key in each window.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ Limiter = (*FixedWindow)(nil)

// NewFixedWindow creates a limiter allowing limit hits per window.
func NewFixedWindow(store Store, limit int, window time.Duration) (*FixedWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}
	return &FixedWindow{store: store, limit: limit, window: window, now: time.Now}, nil
}

// NewFromConfig is NewFixedWindow with cfg's limits.
func NewFromConfig(store Store, cfg Config) (*FixedWindow, error) {
	return NewFixedWindow(store, cfg.Requests, cfg.Window)
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	count, ttl, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return &Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(l.limit-int(count), 0),
		ResetAt:   l.now().Add(ttl),
	}, nil
}
