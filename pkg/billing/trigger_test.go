package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

func TestEventCategory(t *testing.T) {
	t.Parallel()

	e := billing.Event{Type: "customer.subscription.updated"}
	assert.Equal(t, []string{"customer.subscription", "customer"}, e.Category())

	e = billing.Event{Type: "ping"}
	assert.Empty(t, e.Category())
}

func TestRawEventIsTest(t *testing.T) {
	t.Parallel()

	assert.True(t, billing.RawEvent{ID: "evt_00000000000000"}.IsTest())
	assert.False(t, billing.RawEvent{ID: "evt_1NG8Du2eZvKYlo2C"}.IsTest())
}

func TestTriggerHeader(t *testing.T) {
	t.Parallel()

	tr := billing.WebhookEventTrigger{Headers: map[string]string{"stripe-signature": "t=1,v1=abc"}}
	assert.Equal(t, "t=1,v1=abc", tr.Header(billing.SignatureHeader))
	assert.Empty(t, tr.Header("X-Missing"))
	assert.False(t, tr.HasException())
}
