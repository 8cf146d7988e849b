package billing

import (
	"context"
	"encoding/json"
)

// Provider is the payment processor. Implementations return *ProviderError
// for remote failures. Returned entities carry provider fields only; local
// ids and ownership are filled in by the Service.
type Provider interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerStripeID string) error

	// AttachCard adds the tokenised card to the customer and, when
	// setDefault is true, makes it the default source.
	AttachCard(ctx context.Context, customerStripeID, token string, setDefault bool) (*Card, error)

	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionStripeID string, params SubscriptionUpdate) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionStripeID string) (*Subscription, error)

	// CreateInvoice invoices pending items. Stripe answers with an
	// invalid_request_error when there is nothing to invoice.
	CreateInvoice(ctx context.Context, customerStripeID string) (*Invoice, error)
	PayInvoice(ctx context.Context, invoiceStripeID string) (*Invoice, error)
	ListInvoices(ctx context.Context, customerStripeID string) ([]Invoice, error)

	ListPlans(ctx context.Context) ([]Plan, error)

	// RetrieveEventData returns the data object of a stored event.
	RetrieveEventData(ctx context.Context, eventID string) (json.RawMessage, error)
}

// CustomerParams describes a remote customer to create.
type CustomerParams struct {
	SubscriberID   string
	Email          string
	IdempotencyKey string
}

// SubscriptionParams describes a remote subscription to create.
type SubscriptionParams struct {
	CustomerStripeID string
	PlanID           string
	Quantity         int64
	TrialFromPlan    bool
}

// SubscriptionUpdate lists the fields to change. Nil and empty values are
// left untouched.
type SubscriptionUpdate struct {
	PlanID            string
	Quantity          int64
	CancelAtPeriodEnd *bool
}
