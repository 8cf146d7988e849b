package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/logger"
)

var (
	subscriberKey = handler.NewContextKey("billing.subscriber")
	customerKey   = handler.NewContextKey("billing.customer")
)

// SubscriberFromContext returns the subscriber set by RequireSubscriber.
func SubscriberFromContext(ctx context.Context) billing.Subscriber {
	return handler.ContextValue[billing.Subscriber](ctx, subscriberKey)
}

// CustomerFromContext returns the customer set by WithCustomer.
func CustomerFromContext(ctx context.Context) *billing.Customer {
	return handler.ContextValue[*billing.Customer](ctx, customerKey)
}

// LoggerExtractor adds subscriber_id to records logged with a request context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if sub := SubscriberFromContext(ctx); sub != nil {
			return logger.SubscriberID(sub.SubscriberID()), true
		}
		return slog.Attr{}, false
	}
}

// RequireSubscriber resolves the subscriber or redirects to loginURL with
// the current path as next.
func RequireSubscriber[R any](resolver SubscriberResolver, loginURL string) handler.Decorator[handler.Context, R] {
	return func(next handler.HandlerFunc[handler.Context, R]) handler.HandlerFunc[handler.Context, R] {
		return func(ctx handler.Context, req R) handler.Response {
			sub, err := resolver.ResolveSubscriber(ctx.Request())
			if err != nil && !errors.Is(err, ErrNoSubscriber) {
				return handler.Error(err)
			}
			if sub == nil || sub.SubscriberID() == "" {
				return handler.Redirect(loginRedirect(loginURL, ctx.Request()))
			}
			return next(handler.WithValue(ctx, subscriberKey, sub), req)
		}
	}
}

// WithCustomer gets or creates the subscriber's customer. It must run
// inside RequireSubscriber.
func WithCustomer[R any](svc *billing.Service) handler.Decorator[handler.Context, R] {
	return func(next handler.HandlerFunc[handler.Context, R]) handler.HandlerFunc[handler.Context, R] {
		return func(ctx handler.Context, req R) handler.Response {
			sub := SubscriberFromContext(ctx)
			if sub == nil {
				return handler.Error(errors.Join(handler.ErrUnauthorized, ErrNoSubscriber))
			}
			c, _, err := svc.GetOrCreateCustomer(ctx, sub)
			if err != nil {
				return handler.Error(httpError(err))
			}
			return next(handler.WithValue(ctx, customerKey, c), req)
		}
	}
}

func loginRedirect(loginURL string, r *http.Request) string {
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + url.QueryEscape(r.URL.RequestURI())
}

// httpError gives billing errors an HTTP status for the error handler.
func httpError(err error) error {
	var pe *billing.ProviderError
	switch {
	case errors.Is(err, billing.ErrPlanNotFound):
		return errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, billing.ErrMultipleSubscriptions):
		return errors.Join(handler.ErrConflict, err)
	case errors.As(err, &pe):
		return errors.Join(handler.ErrBadGateway, err)
	}
	return err
}
