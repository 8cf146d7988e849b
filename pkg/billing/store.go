package billing

import (
	"context"

	"github.com/google/uuid"
)

// CustomerStore persists customers and their cards.
type CustomerStore interface {
	// GetCustomerBySubscriber returns ErrCustomerNotFound when absent.
	GetCustomerBySubscriber(ctx context.Context, subscriberID string, livemode bool) (*Customer, error)
	GetCustomerByStripeID(ctx context.Context, stripeID string) (*Customer, error)
	// CreateCustomer assigns c.ID when zero. It returns ErrCustomerExists when
	// the subscriber already has a customer in the same mode.
	CreateCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c *Customer) error

	// SaveCard upserts by StripeID.
	SaveCard(ctx context.Context, card *Card) error
	DeleteCard(ctx context.Context, stripeID string) error
	ListCards(ctx context.Context, customerID uuid.UUID) ([]Card, error)
}

// SubscriptionStore persists subscription mirrors.
type SubscriptionStore interface {
	// SaveSubscription upserts by StripeID, keeping the existing local ID or
	// assigning a new one.
	SaveSubscription(ctx context.Context, sub *Subscription) error
	GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID uuid.UUID) ([]Subscription, error)
}

// PlanStore persists the plan catalogue.
type PlanStore interface {
	SavePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
}

// InvoiceStore persists invoice mirrors.
type InvoiceStore interface {
	// SaveInvoice upserts by StripeID, keeping the existing local ID.
	SaveInvoice(ctx context.Context, inv *Invoice) error
	// ListInvoices returns newest first.
	ListInvoices(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
}

// IdempotencyStore persists keys for guarded remote creates.
type IdempotencyStore interface {
	// GetOrCreateIdempotencyKey returns the stored key for (action, livemode),
	// creating a fresh one when none exists.
	GetOrCreateIdempotencyKey(ctx context.Context, action string, livemode bool) (*IdempotencyKey, error)
	DeleteIdempotencyKey(ctx context.Context, action string, livemode bool) error
}

// TriggerStore persists webhook triggers.
type TriggerStore interface {
	CreateTrigger(ctx context.Context, t *WebhookEventTrigger) error
	UpdateTrigger(ctx context.Context, t *WebhookEventTrigger) error
	GetTrigger(ctx context.Context, id uuid.UUID) (*WebhookEventTrigger, error)
}

// EventStore persists deduplicated events.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*Event, error)
	// CreateEvent returns ErrEventExists on a duplicate id.
	CreateEvent(ctx context.Context, e *Event) error
	MarkEventProcessed(ctx context.Context, id string) error
}

// Store is everything the billing service persists.
type Store interface {
	CustomerStore
	SubscriptionStore
	PlanStore
	InvoiceStore
	IdempotencyStore
	TriggerStore
	EventStore
}
