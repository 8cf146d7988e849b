package billing

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus follows Stripe's subscription states.
type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusPaused            SubscriptionStatus = "paused"
)

// entitled lists the statuses that grant access. Anything else, including
// statuses Stripe adds later, does not.
var entitled = map[SubscriptionStatus]bool{
	StatusActive:            true,
	StatusTrialing:          true,
	StatusPastDue:           false,
	StatusCanceled:          false,
	StatusUnpaid:            false,
	StatusIncomplete:        false,
	StatusIncompleteExpired: false,
	StatusPaused:            false,
}

// Subscription mirrors a Stripe subscription of a customer to a plan.
type Subscription struct {
	ID                 uuid.UUID
	StripeID           string
	CustomerID         uuid.UUID
	PlanID             string
	Status             SubscriptionStatus
	Quantity           int64
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	EndedAt            *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsValid reports whether the subscription entitles its customer at now.
// A subscription set to cancel at period end stays valid until the period
// (or trial) it was cancelled in runs out.
func (s *Subscription) IsValid(now time.Time) bool {
	if !entitled[s.Status] {
		return false
	}
	if !s.CancelAtPeriodEnd {
		return true
	}
	end := s.CurrentPeriodEnd
	if s.Status == StatusTrialing && s.TrialEnd != nil {
		end = *s.TrialEnd
	}
	return end.After(now)
}

// IsTrialing reports whether the trial is still running at now.
func (s *Subscription) IsTrialing(now time.Time) bool {
	return s.TrialEnd != nil && s.TrialEnd.After(now)
}

// IsCanceled reports whether the subscription was cancelled.
func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// IsEnded reports a terminal status: cancelled, or a first payment that was
// never completed. Ended subscriptions never become current again.
func (s *Subscription) IsEnded() bool {
	return s.Status == StatusCanceled || s.Status == StatusIncompleteExpired
}

// PeriodEnd is the date shown to the user for a pending cancellation.
func (s *Subscription) PeriodEnd() time.Time {
	if s.Status == StatusTrialing && s.TrialEnd != nil {
		return *s.TrialEnd
	}
	return s.CurrentPeriodEnd
}
