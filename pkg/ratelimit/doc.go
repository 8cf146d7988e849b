// Package ratelimit limits requests per key with fixed windows.
//
// Counters live in a MemoryStore for a single instance or in a RedisStore
// when several instances share the load. Middleware answers 429 with
// Retry-After once a key is over its limit and fails open when the store
// is unavailable.
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//	limiter, err := ratelimit.NewFixedWindow(store, 30, time.Minute)
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimit.Middleware(limiter,
//		ratelimit.OnlyMethods(ratelimit.ClientIP("form:"), http.MethodPost),
//	))
package ratelimit
