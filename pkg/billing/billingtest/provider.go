// Package billingtest provides test doubles for the billing package.
package billingtest

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

// Provider is a testify mock of billing.Provider.
type Provider struct {
	mock.Mock
}

var _ billing.Provider = (*Provider)(nil)

func (m *Provider) CreateCustomer(ctx context.Context, params billing.CustomerParams) (*billing.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

func (m *Provider) DeleteCustomer(ctx context.Context, customerStripeID string) error {
	return m.Called(ctx, customerStripeID).Error(0)
}

func (m *Provider) AttachCard(ctx context.Context, customerStripeID, token string, setDefault bool) (*billing.Card, error) {
	args := m.Called(ctx, customerStripeID, token, setDefault)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Card), args.Error(1)
}

func (m *Provider) CreateSubscription(ctx context.Context, params billing.SubscriptionParams) (*billing.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *Provider) UpdateSubscription(ctx context.Context, subscriptionStripeID string, params billing.SubscriptionUpdate) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionStripeID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *Provider) CancelSubscription(ctx context.Context, subscriptionStripeID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *Provider) CreateInvoice(ctx context.Context, customerStripeID string) (*billing.Invoice, error) {
	args := m.Called(ctx, customerStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *Provider) PayInvoice(ctx context.Context, invoiceStripeID string) (*billing.Invoice, error) {
	args := m.Called(ctx, invoiceStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *Provider) ListInvoices(ctx context.Context, customerStripeID string) ([]billing.Invoice, error) {
	args := m.Called(ctx, customerStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *Provider) ListPlans(ctx context.Context) ([]billing.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Plan), args.Error(1)
}

func (m *Provider) RetrieveEventData(ctx context.Context, eventID string) (json.RawMessage, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
