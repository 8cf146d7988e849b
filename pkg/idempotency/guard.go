package idempotency

import (
	"context"
	"time"
)

// Guard is a short-lived lock keyed by an idempotency key. It keeps two
// concurrent deliveries of the same work from running side by side; it is not
// a record of completed work.
type Guard interface {
	// Acquire returns ok=false when the key is already held. release is
	// non-nil whenever ok is true and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
