package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is the host application's billable entity. Each subscriber maps
// to at most one Customer per mode.
type Subscriber interface {
	SubscriberID() string
	Email() string
}

type subscriber struct {
	id    string
	email string
}

func (s subscriber) SubscriberID() string { return s.id }
func (s subscriber) Email() string        { return s.email }

// NewSubscriber adapts a plain id and e-mail to Subscriber.
func NewSubscriber(id, email string) Subscriber {
	return subscriber{id: id, email: email}
}

// Customer mirrors a Stripe customer owned by a subscriber.
type Customer struct {
	ID              uuid.UUID
	StripeID        string
	SubscriberID    string
	Email           string
	DefaultSourceID string
	Livemode        bool
	Balance         int64
	Currency        string
	Delinquent      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPaymentMethod reports whether a default card is on file.
func (c *Customer) HasPaymentMethod() bool {
	return c.DefaultSourceID != ""
}

// Card is a payment source attached to a customer.
type Card struct {
	ID          uuid.UUID
	StripeID    string
	CustomerID  uuid.UUID
	Brand       string
	Last4       string
	ExpMonth    int64
	ExpYear     int64
	Fingerprint string
	CreatedAt   time.Time
}

// InvoiceStatus follows Stripe's invoice states.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
	InvoiceVoid          InvoiceStatus = "void"
)

// Invoice mirrors a Stripe invoice.
type Invoice struct {
	ID                   uuid.UUID
	StripeID             string
	CustomerID           uuid.UUID
	SubscriptionStripeID string
	Number               string
	Status               InvoiceStatus
	Paid                 bool
	AmountDue            int64
	AmountPaid           int64
	Currency             string
	AttemptCount         int64
	PeriodStart          time.Time
	PeriodEnd            time.Time
	HostedURL            string
	CreatedAt            time.Time
}

// IsRetryable reports whether paying the invoice again makes sense.
func (i *Invoice) IsRetryable() bool {
	return !i.Paid && i.Status == InvoiceOpen
}

// DisplayAmount formats AmountDue in the invoice currency.
func (i *Invoice) DisplayAmount() string {
	return FormatAmount(i.AmountDue, i.Currency)
}

// IdempotencyKey guards a remote create against duplicate submission. It
// lives until the local side of the action has been committed.
type IdempotencyKey struct {
	Action    string
	Livemode  bool
	Key       uuid.UUID
	CreatedAt time.Time
}
