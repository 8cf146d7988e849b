package billing

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v81"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// RegisterHandlers installs the handlers that keep the local mirror in step
// with Stripe.
func (s *Service) RegisterHandlers(p *EventProcessor) {
	p.RegisterHandler("customer.updated", s.onCustomerUpdated)
	p.RegisterHandler("customer.deleted", s.onCustomerDeleted)
	p.RegisterHandler("customer.source.created", s.onSourceCreated)
	p.RegisterHandler("customer.source.updated", s.onSourceCreated)
	p.RegisterHandler("customer.source.deleted", s.onSourceDeleted)
	p.RegisterHandler("customer.subscription", s.onSubscription)
	p.RegisterHandler("invoice", s.onInvoice)
	p.RegisterHandler("plan", s.onPlan)
}

func decodeObject[T any](e *Event) (*T, error) {
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// localCustomer returns nil, nil for customers this service does not manage.
func (s *Service) localCustomer(ctx context.Context, stripeID string) (*Customer, error) {
	if stripeID == "" {
		return nil, nil
	}
	c, err := s.store.GetCustomerByStripeID(ctx, stripeID)
	if errors.Is(err, ErrCustomerNotFound) {
		s.log.DebugContext(ctx, "event for unknown customer", logger.CustomerID(stripeID))
		return nil, nil
	}
	return c, err
}

func (s *Service) onCustomerUpdated(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Customer](e)
	if err != nil {
		return err
	}
	c, err := s.localCustomer(ctx, obj.ID)
	if err != nil || c == nil {
		return err
	}

	remote := customerFromStripe(obj)
	c.DefaultSourceID = remote.DefaultSourceID
	c.Balance = remote.Balance
	c.Delinquent = remote.Delinquent
	c.Currency = remote.Currency
	if remote.Email != "" {
		c.Email = remote.Email
	}
	c.UpdatedAt = s.Now()
	return s.store.UpdateCustomer(ctx, c)
}

func (s *Service) onCustomerDeleted(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Customer](e)
	if err != nil {
		return err
	}
	c, err := s.localCustomer(ctx, obj.ID)
	if err != nil || c == nil {
		return err
	}

	now := s.Now()
	c.DefaultSourceID = ""
	c.UpdatedAt = now
	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return err
	}

	subs, err := s.store.ListSubscriptions(ctx, c.ID)
	if err != nil {
		return err
	}
	for i := range subs {
		if subs[i].IsEnded() {
			continue
		}
		subs[i].Status = StatusCanceled
		subs[i].CanceledAt = &now
		subs[i].EndedAt = &now
		subs[i].UpdatedAt = now
		if err := s.store.SaveSubscription(ctx, &subs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) onSourceCreated(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Card](e)
	if err != nil {
		return err
	}
	if obj.Customer == nil {
		return nil
	}
	c, err := s.localCustomer(ctx, obj.Customer.ID)
	if err != nil || c == nil {
		return err
	}
	card := cardFromStripe(obj)
	card.CustomerID = c.ID
	card.CreatedAt = s.Now()
	return s.store.SaveCard(ctx, card)
}

func (s *Service) onSourceDeleted(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Card](e)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCard(ctx, obj.ID); err != nil && !errors.Is(err, ErrCardNotFound) {
		return err
	}
	return nil
}

func (s *Service) onSubscription(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Subscription](e)
	if err != nil {
		return err
	}
	remote, customerStripeID := subscriptionFromStripe(obj)
	c, err := s.localCustomer(ctx, customerStripeID)
	if err != nil || c == nil {
		return err
	}

	local, err := s.store.GetSubscriptionByStripeID(ctx, remote.StripeID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return err
	}
	sub := s.mergeSubscription(c, local, remote)
	if e.Type == "customer.subscription.deleted" {
		now := s.Now()
		sub.Status = StatusCanceled
		if sub.EndedAt == nil {
			sub.EndedAt = &now
		}
	}
	return s.store.SaveSubscription(ctx, sub)
}

func (s *Service) onInvoice(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Invoice](e)
	if err != nil {
		return err
	}
	inv, customerStripeID := invoiceFromStripe(obj)
	c, err := s.localCustomer(ctx, customerStripeID)
	if err != nil || c == nil {
		return err
	}
	inv.CustomerID = c.ID
	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return err
	}

	if e.Type == "invoice.payment_succeeded" && s.cfg.SendReceipts {
		s.sendReceipt(ctx, c, inv)
	}
	return nil
}

func (s *Service) sendReceipt(ctx context.Context, c *Customer, inv *Invoice) {
	r := Receipt{Customer: c, Invoice: inv}
	if inv.SubscriptionStripeID != "" {
		if sub, err := s.store.GetSubscriptionByStripeID(ctx, inv.SubscriptionStripeID); err == nil {
			if p, err := s.store.GetPlan(ctx, sub.PlanID); err == nil {
				r.Plan = p
			}
		}
	}
	if err := s.receipts.SendReceipt(ctx, r); err != nil {
		s.log.WarnContext(ctx, "failed to send receipt",
			logger.CustomerID(c.StripeID), logger.Error(err))
	}
}

func (s *Service) onPlan(ctx context.Context, e *Event) error {
	obj, err := decodeObject[stripe.Plan](e)
	if err != nil {
		return err
	}
	p := planFromStripe(obj)
	if e.Type == "plan.deleted" {
		p.Active = false
	}
	p.UpdatedAt = s.Now()
	return s.store.SavePlan(ctx, p)
}
