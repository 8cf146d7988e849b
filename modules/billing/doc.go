// Package billing serves the subscriber-facing billing pages and the Stripe
// webhook endpoint on top of pkg/billing.
//
// Routes, relative to Config.BasePath:
//
//	GET  /                  account overview
//	GET  /subscribe         plan list
//	GET  /confirm/{plan_id} confirm a plan, optionally with a new card
//	POST /confirm/{plan_id}
//	GET  /cancel            cancel confirmation
//	POST /cancel
//	GET  /change-card       replace the default card
//	POST /change-card
//	GET  /history           invoices
//	POST /webhook           Stripe deliveries, no session required
//
// Every page except the webhook runs behind RequireSubscriber and
// WithCustomer, so handlers always see a resolved subscriber and its
// customer. The host application supplies the SubscriberResolver, an
// optional FlashStore and the LogoutFunc run after an immediate
// cancellation.
//
//	mod := billingmod.New(cfg, svc, webhooks,
//		billingmod.SubscriberResolverFunc(currentUser),
//		billingmod.WithFlashStore(sessions),
//		billingmod.WithLogout(logout),
//	)
//	r.Mount(cfg.BasePath, mod.Handle())
//
// Pages render through Views. DefaultViews emits plain HTML; embed it in
// your own type to restyle a subset of pages.
package billing
