package billing

import (
	"net/http"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

// SubscriberResolver finds the billable entity behind a request. It returns
// ErrNoSubscriber, or a nil Subscriber, for anonymous visitors.
type SubscriberResolver interface {
	ResolveSubscriber(r *http.Request) (billing.Subscriber, error)
}

// SubscriberResolverFunc adapts a function to SubscriberResolver.
type SubscriberResolverFunc func(r *http.Request) (billing.Subscriber, error)

func (f SubscriberResolverFunc) ResolveSubscriber(r *http.Request) (billing.Subscriber, error) {
	return f(r)
}

// LogoutFunc ends the host application's session. It runs after an
// immediate cancellation.
type LogoutFunc func(w http.ResponseWriter, r *http.Request) error
