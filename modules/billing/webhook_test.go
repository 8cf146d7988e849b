package billing_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingmod "github.com/dmitrymomot/stripekit/modules/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing/billingtest"
)

func postWebhook(f *fixture, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(billing.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("missing signature header", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		body := billingtest.EventPayload("evt_1", "plan.created", false, "")

		rec := postWebhook(f, body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.store.Triggers())
	})

	t.Run("test event", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		body := billingtest.EventPayload("evt"+billing.TestEventSuffix, "customer.created", false, "")

		rec := postWebhook(f, body, "t=1,v1=bogus")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Test webhook successfully received!", rec.Body.String())

		triggers := f.store.Triggers()
		require.Len(t, triggers, 1)
		assert.True(t, triggers[0].TestEvent)
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		body := billingtest.EventPayload("evt_1", "ping", false, "")

		rec := postWebhook(f, body, billingtest.Sign(body, "whsec_other", time.Now()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		triggers := f.store.Triggers()
		require.Len(t, triggers, 1)
		assert.False(t, triggers[0].Valid)
		assert.False(t, triggers[0].HasException())
	})

	t.Run("valid event", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		body := billingtest.EventPayload("evt_1", "ping", false, "")

		rec := postWebhook(f, body, billingtest.Sign(body, testWebhookSecret, time.Now()))
		require.Equal(t, http.StatusOK, rec.Code)

		id, err := uuid.Parse(rec.Body.String())
		require.NoError(t, err)
		triggers := f.store.Triggers()
		require.Len(t, triggers, 1)
		assert.Equal(t, id, triggers[0].ID)
		assert.True(t, triggers[0].Valid)
		assert.True(t, triggers[0].Processed)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := postWebhook(f, []byte(`{"id":`), "t=1,v1=bogus")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		triggers := f.store.Triggers()
		require.Len(t, triggers, 1)
		assert.True(t, triggers[0].HasException())
	})

	t.Run("payload too large", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(_ *billing.Config, c *billingmod.Config) {
			c.MaxWebhookBytes = 16
		})
		body := billingtest.EventPayload("evt_1", "ping", false, "")

		rec := postWebhook(f, body, billingtest.Sign(body, testWebhookSecret, time.Now()))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, f.store.Triggers())
	})
}
