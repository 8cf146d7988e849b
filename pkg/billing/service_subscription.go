package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// SubscribeOptions tunes Subscribe.
type SubscribeOptions struct {
	// Quantity defaults to 1.
	Quantity int64
	// ChargeImmediately overrides Config.ChargeImmediately when set.
	ChargeImmediately *bool
}

// noPaymentSourceMessage is the text Stripe uses for the same rejection.
const noPaymentSourceMessage = "This customer has no attached payment source"

// Subscribe puts the customer on planID. A current subscription to another
// plan is switched over; a valid one to the same plan is rejected. Paid plans
// need a payment method on file, and nothing is written remotely or locally
// without one.
func (s *Service) Subscribe(ctx context.Context, c *Customer, planID string, opts SubscribeOptions) (*Subscription, error) {
	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	quantity := max(opts.Quantity, 1)
	charge := s.cfg.ChargeImmediately
	if opts.ChargeImmediately != nil {
		charge = *opts.ChargeImmediately
	}

	current, err := s.CurrentSubscription(ctx, c)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	if current != nil && current.PlanID == plan.ID && current.IsValid(s.Now()) {
		return nil, &ValidationError{Field: "plan", Reason: "already subscribed", Err: ErrAlreadySubscribed}
	}
	if !plan.IsFree() && !c.HasPaymentMethod() {
		return nil, &ProviderError{
			Op:      "create subscription",
			Code:    "missing",
			Type:    "invalid_request_error",
			Message: noPaymentSourceMessage,
			Err:     ErrNoPaymentMethod,
		}
	}

	var remote *Subscription
	switch {
	case current != nil:
		remote, err = s.provider.UpdateSubscription(ctx, current.StripeID, SubscriptionUpdate{
			PlanID:   plan.ID,
			Quantity: quantity,
		})
	default:
		remote, err = s.provider.CreateSubscription(ctx, SubscriptionParams{
			CustomerStripeID: c.StripeID,
			PlanID:           plan.ID,
			Quantity:         quantity,
			TrialFromPlan:    plan.TrialPeriodDays > 0,
		})
	}
	if err != nil {
		return nil, err
	}

	sub := s.mergeSubscription(c, current, remote)
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscribed",
		logger.CustomerID(c.StripeID),
		logger.SubscriptionID(sub.StripeID),
		logger.PlanID(plan.ID),
	)

	if charge && !plan.IsFree() {
		if _, err := s.SendInvoice(ctx, c); err != nil {
			s.log.WarnContext(ctx, "failed to invoice new subscription",
				logger.CustomerID(c.StripeID), logger.Error(err))
		}
	}
	return sub, nil
}

// CancelOption tunes Cancel.
type CancelOption func(*cancelOptions)

type cancelOptions struct {
	atPeriodEnd bool
}

// WithAtPeriodEnd overrides Config.CancelAtPeriodEnd.
func WithAtPeriodEnd(v bool) CancelOption {
	return func(o *cancelOptions) { o.atPeriodEnd = v }
}

// Cancel ends the subscription. Pro-rated cancellation keeps it running to
// the end of the paid period, except during a trial, which ends right away.
// Callers branch on the returned Status.
func (s *Service) Cancel(ctx context.Context, sub *Subscription, opts ...CancelOption) (*Subscription, error) {
	o := cancelOptions{atPeriodEnd: s.cfg.CancelAtPeriodEnd}
	for _, opt := range opts {
		opt(&o)
	}
	if sub.IsTrialing(s.Now()) {
		o.atPeriodEnd = false
	}

	var (
		remote *Subscription
		err    error
	)
	if o.atPeriodEnd {
		remote, err = s.provider.UpdateSubscription(ctx, sub.StripeID, SubscriptionUpdate{
			CancelAtPeriodEnd: &o.atPeriodEnd,
		})
	} else {
		remote, err = s.provider.CancelSubscription(ctx, sub.StripeID)
	}
	if err != nil {
		return nil, err
	}

	out := s.mergeSubscription(&Customer{ID: sub.CustomerID}, sub, remote)
	if err := s.store.SaveSubscription(ctx, out); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription cancelled",
		logger.SubscriptionID(out.StripeID),
		slog.String("status", string(out.Status)),
		slog.Bool("at_period_end", o.atPeriodEnd),
	)
	return out, nil
}

// CurrentSubscription returns the customer's only subscription that has not
// ended.
func (s *Service) CurrentSubscription(ctx context.Context, c *Customer) (*Subscription, error) {
	subs, err := s.store.ListSubscriptions(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	var current *Subscription
	for i := range subs {
		if subs[i].IsEnded() {
			continue
		}
		if current != nil {
			return nil, ErrMultipleSubscriptions
		}
		current = &subs[i]
	}
	if current == nil {
		return nil, ErrSubscriptionNotFound
	}
	return current, nil
}

// HasValidSubscription reports whether the customer is entitled right now.
func (s *Service) HasValidSubscription(ctx context.Context, c *Customer) bool {
	sub, err := s.CurrentSubscription(ctx, c)
	return err == nil && sub.IsValid(s.Now())
}

// mergeSubscription carries local identity over to a provider result.
func (s *Service) mergeSubscription(c *Customer, local, remote *Subscription) *Subscription {
	out := *remote
	out.CustomerID = c.ID
	out.UpdatedAt = s.Now()
	if local != nil && local.StripeID == remote.StripeID {
		out.ID = local.ID
		out.CustomerID = local.CustomerID
		if !local.CreatedAt.IsZero() {
			out.CreatedAt = local.CreatedAt
		}
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.Now()
	}
	return &out
}
