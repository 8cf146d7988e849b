package billing

import (
	"context"
	"errors"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

func customerAction(subscriberID string) string {
	return "customer:create:" + subscriberID
}

// GetOrCreateCustomer returns the subscriber's customer in the configured
// mode, creating it on Stripe and locally on first use. created reports
// whether this call made it.
func (s *Service) GetOrCreateCustomer(ctx context.Context, sub Subscriber) (*Customer, bool, error) {
	if sub == nil || sub.SubscriberID() == "" {
		return nil, false, ErrMissingSubscriber
	}
	subscriberID := sub.SubscriberID()

	existing, err := s.store.GetCustomerBySubscriber(ctx, subscriberID, s.cfg.LiveMode)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, false, err
	}

	action := customerAction(subscriberID)
	key, err := s.store.GetOrCreateIdempotencyKey(ctx, action, s.cfg.LiveMode)
	if err != nil {
		return nil, false, err
	}

	remote, err := s.provider.CreateCustomer(ctx, CustomerParams{
		SubscriberID:   subscriberID,
		Email:          sub.Email(),
		IdempotencyKey: key.Key.String(),
	})
	if err != nil {
		return nil, false, err
	}

	now := s.Now()
	c := &Customer{
		StripeID:        remote.StripeID,
		SubscriberID:    subscriberID,
		Email:           remote.Email,
		DefaultSourceID: remote.DefaultSourceID,
		Livemode:        s.cfg.LiveMode,
		Balance:         remote.Balance,
		Currency:        remote.Currency,
		Delinquent:      remote.Delinquent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c.Email == "" {
		c.Email = sub.Email()
	}

	if err := s.store.CreateCustomer(ctx, c); err != nil {
		if errors.Is(err, ErrCustomerExists) {
			return s.resolveCustomerRace(ctx, subscriberID, remote.StripeID)
		}
		s.compensateCustomer(ctx, remote.StripeID, action)
		return nil, false, errors.Join(ErrCustomerNotSaved, err)
	}

	if err := s.store.DeleteIdempotencyKey(ctx, action, s.cfg.LiveMode); err != nil {
		s.log.WarnContext(ctx, "failed to delete idempotency key", logger.SubscriberID(subscriberID), logger.Error(err))
	}

	s.log.InfoContext(ctx, "customer created",
		logger.SubscriberID(subscriberID),
		logger.CustomerID(c.StripeID),
	)
	return c, true, nil
}

// resolveCustomerRace returns the customer saved by a concurrent call. The
// remote customer created here is removed unless Stripe replayed the same one.
func (s *Service) resolveCustomerRace(ctx context.Context, subscriberID, ourStripeID string) (*Customer, bool, error) {
	winner, err := s.store.GetCustomerBySubscriber(ctx, subscriberID, s.cfg.LiveMode)
	if err != nil {
		return nil, false, err
	}
	if winner.StripeID != ourStripeID {
		if err := s.provider.DeleteCustomer(ctx, ourStripeID); err != nil {
			s.log.WarnContext(ctx, "failed to delete duplicate stripe customer",
				logger.CustomerID(ourStripeID), logger.Error(err))
		}
	}
	return winner, false, nil
}

func (s *Service) compensateCustomer(ctx context.Context, stripeID, action string) {
	if err := s.provider.DeleteCustomer(ctx, stripeID); err != nil {
		s.log.ErrorContext(ctx, "failed to delete orphaned stripe customer",
			logger.CustomerID(stripeID), logger.Error(err))
	}
	if err := s.store.DeleteIdempotencyKey(ctx, action, s.cfg.LiveMode); err != nil {
		s.log.WarnContext(ctx, "failed to delete idempotency key", logger.Error(err))
	}
}

// AddCard attaches the card behind a Stripe.js token to the customer.
// Tokens are single-use, so provider failures are never retried.
func (s *Service) AddCard(ctx context.Context, c *Customer, token string, setDefault bool) (*Card, error) {
	if token == "" {
		return nil, &ValidationError{Field: "stripe_token", Reason: "required", Err: ErrMissingToken}
	}

	card, err := s.provider.AttachCard(ctx, c.StripeID, token, setDefault)
	if err != nil {
		return nil, err
	}
	card.CustomerID = c.ID
	card.CreatedAt = s.Now()
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}

	if setDefault {
		c.DefaultSourceID = card.StripeID
		c.UpdatedAt = s.Now()
		if err := s.store.UpdateCustomer(ctx, c); err != nil {
			return nil, err
		}
	}

	s.log.InfoContext(ctx, "card added",
		logger.CustomerID(c.StripeID),
		logger.Event("card.added"),
	)
	return card, nil
}

// Cards lists the customer's stored cards.
func (s *Service) Cards(ctx context.Context, c *Customer) ([]Card, error) {
	return s.store.ListCards(ctx, c.ID)
}
