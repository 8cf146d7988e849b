// Package idempotency provides in-flight guards for work that must not run
// twice at the same time, such as concurrent redeliveries of one webhook
// event.
//
//	guard := idempotency.NewRedisGuard(redisClient)
//	events := billing.NewEventProcessor(store, billing.WithInFlightGuard(guard, 30*time.Second))
//
// MemoryGuard is the single-process variant for tests and development.
package idempotency
