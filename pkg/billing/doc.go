// Package billing plugs Stripe subscription billing into a web application.
//
// It keeps a local mirror of the Stripe objects a subscriber owns, runs the
// subscription lifecycle against Stripe, and ingests webhook deliveries into
// an append-only trigger log with deduplicated events.
//
// # Architecture
//
//   - Service: customer, card, subscription, invoice and plan operations
//   - Provider: the Stripe API surface the service needs (StripeProvider)
//   - Store: persistence (MemoryStore, or pgstore.Store for Postgres)
//   - WebhookProcessor: persists and validates deliveries
//   - EventProcessor: stores each event once and dispatches it to handlers
//
// # Quick Start
//
//	cfg := billing.DefaultConfig(os.Getenv("STRIPE_SECRET_KEY"))
//	cfg.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
//
//	provider, err := billing.NewStripeProvider(cfg)
//	if err != nil {
//		return err
//	}
//	store := billing.NewMemoryStore()
//	svc := billing.NewService(cfg, provider, store)
//
//	customer, _, err := svc.GetOrCreateCustomer(ctx, billing.NewSubscriber(user.ID, user.Email))
//	if err != nil {
//		return err
//	}
//	if _, err := svc.AddCard(ctx, customer, token, true); err != nil {
//		return err
//	}
//	sub, err := svc.Subscribe(ctx, customer, "gold", billing.SubscribeOptions{})
//
// # Webhooks
//
// Each delivery becomes a WebhookEventTrigger that is saved before any
// validation and updated once with the outcome:
//
//	events := billing.NewEventProcessor(store)
//	svc.RegisterHandlers(events)
//	events.RegisterHandler("invoice.payment_failed", notifyOwner)
//
//	hooks := billing.NewWebhookProcessor(cfg, store, events, provider)
//	trigger, err := hooks.Ingest(ctx, billing.TriggerRequest{Headers: h, Body: body})
//
// Handlers registered for a category ("invoice") run after those for the
// exact type ("invoice.paid"). An event id that was already processed is
// never dispatched again.
//
// # Errors
//
// Failures are reported through four kinds, matched with errors.Is:
// ErrProvider (*ProviderError), ErrValidation (*ValidationError),
// ErrWebhookVerification (*WebhookVerificationError) and ErrWebhookProcessing
// (*WebhookProcessingException).
package billing
