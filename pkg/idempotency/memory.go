package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard implements Guard for a single process.
type MemoryGuard struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	now   func() time.Time
	nextN uint64
}

type memoryLock struct {
	expires time.Time
	n       uint64
}

// NewMemoryGuard creates an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]memoryLock), now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if l, ok := g.held[key]; ok && now.Before(l.expires) {
		return nil, false, nil
	}
	g.nextN++
	n := g.nextN
	g.held[key] = memoryLock{expires: now.Add(ttl), n: n}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if l, ok := g.held[key]; ok && l.n == n {
				delete(g.held, key)
			}
		})
	}
	return release, true, nil
}
