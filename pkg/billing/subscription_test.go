package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

func TestSubscriptionIsValid(t *testing.T) {
	t.Parallel()

	now := testNow
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  billing.Subscription
		want bool
	}{
		{"active", billing.Subscription{Status: billing.StatusActive, CurrentPeriodEnd: future}, true},
		{"trialing", billing.Subscription{Status: billing.StatusTrialing, TrialEnd: &future}, true},
		{"past due", billing.Subscription{Status: billing.StatusPastDue, CurrentPeriodEnd: future}, false},
		{"canceled", billing.Subscription{Status: billing.StatusCanceled}, false},
		{"unpaid", billing.Subscription{Status: billing.StatusUnpaid}, false},
		{"incomplete", billing.Subscription{Status: billing.StatusIncomplete}, false},
		{"incomplete expired", billing.Subscription{Status: billing.StatusIncompleteExpired}, false},
		{"paused", billing.Subscription{Status: billing.StatusPaused}, false},
		{"unknown status", billing.Subscription{Status: "frozen", CurrentPeriodEnd: future}, false},
		{"cancel at period end, period running", billing.Subscription{Status: billing.StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: future}, true},
		{"cancel at period end, period over", billing.Subscription{Status: billing.StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: past}, false},
		{"trial cancelled, trial running", billing.Subscription{Status: billing.StatusTrialing, CancelAtPeriodEnd: true, CurrentPeriodEnd: past, TrialEnd: &future}, true},
		{"trial cancelled, trial over", billing.Subscription{Status: billing.StatusTrialing, CancelAtPeriodEnd: true, CurrentPeriodEnd: future, TrialEnd: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sub.IsValid(now))
		})
	}
}

func TestSubscriptionTrial(t *testing.T) {
	t.Parallel()

	end := testNow.Add(time.Hour)
	sub := billing.Subscription{Status: billing.StatusTrialing, CurrentPeriodEnd: testNow.Add(30 * 24 * time.Hour), TrialEnd: &end}
	assert.True(t, sub.IsTrialing(testNow))
	assert.False(t, sub.IsTrialing(end))
	assert.Equal(t, end, sub.PeriodEnd())

	sub.Status = billing.StatusActive
	assert.Equal(t, sub.CurrentPeriodEnd, sub.PeriodEnd())
}

func TestSubscriptionIsEnded(t *testing.T) {
	t.Parallel()

	for status, want := range map[billing.SubscriptionStatus]bool{
		billing.StatusActive:            false,
		billing.StatusTrialing:          false,
		billing.StatusPastDue:           false,
		billing.StatusUnpaid:            false,
		billing.StatusIncomplete:        false,
		billing.StatusPaused:            false,
		billing.StatusCanceled:          true,
		billing.StatusIncompleteExpired: true,
	} {
		sub := billing.Subscription{Status: status}
		assert.Equal(t, want, sub.IsEnded(), string(status))
	}
}
