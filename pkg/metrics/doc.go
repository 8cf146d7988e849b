// Package metrics exposes Prometheus metrics for webhook ingestion and HTTP
// traffic.
//
//	m := metrics.New(nil)
//	events := billing.NewEventProcessor(store, billing.WithEventObserver(m))
//	hooks := billing.NewWebhookProcessor(cfg, store, events, provider, billing.WithWebhookObserver(m))
//	r.Use(m.Middleware)
//	r.Handle("/metrics", m.Handler())
package metrics
