// Package logger builds *slog.Logger instances with functional options and
// injects request-scoped attributes from context.Context.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "stripekit"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "subscription cancelled",
//		logger.CustomerID(customer.StripeID),
//		logger.SubscriptionID(sub.StripeID),
//	)
//
// New picks a text or JSON handler and wraps it so that it
// runs every registered ContextExtractor on each record.
//
// Error and Errors return an empty attribute for nil errors, so callers can
// log them without a nil check. The id helpers do the same for empty ids.
package logger
