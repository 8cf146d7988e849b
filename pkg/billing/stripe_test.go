package billing_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

func newFakeStripe(t *testing.T, mux *http.ServeMux) *billing.StripeProvider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := billing.NewStripeProvider(billing.DefaultConfig("sk_test_123"),
		billing.WithStripeBackendURL(srv.URL),
		billing.WithStripeMaxRetries(0),
	)
	require.NoError(t, err)
	return p
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Request-Id", "req_123")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewStripeProviderRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := billing.NewStripeProvider(billing.Config{})
	assert.ErrorIs(t, err, billing.ErrMissingSecretKey)
}

func TestStripeProviderCreateCustomer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/customers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ann@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[stripekit_subscriber]"))
		writeJSON(w, http.StatusOK, `{"id":"cus_1","object":"customer","email":"ann@example.com","livemode":false,"balance":0,"metadata":{"stripekit_subscriber":"user-1"}}`)
	})
	p := newFakeStripe(t, mux)

	c, err := p.CreateCustomer(context.Background(), billing.CustomerParams{
		SubscriberID:   "user-1",
		Email:          "ann@example.com",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", c.StripeID)
	assert.Equal(t, "user-1", c.SubscriberID)
	assert.False(t, c.HasPaymentMethod())
}

func TestStripeProviderCardError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/invoices/in_1/pay", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusPaymentRequired, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	})
	p := newFakeStripe(t, mux)

	_, err := p.PayInvoice(context.Background(), "in_1")
	require.ErrorIs(t, err, billing.ErrProvider)

	var perr *billing.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "pay invoice", perr.Op)
	assert.Equal(t, "card_declined", perr.Code)
	assert.Equal(t, "card_error", perr.Type)
	assert.Equal(t, "Your card was declined.", perr.Message)
	assert.Equal(t, http.StatusPaymentRequired, perr.StatusCode)
	assert.False(t, perr.IsInvalidRequest())
}

func TestStripeProviderCreateSubscription(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "gold", r.PostForm.Get("items[0][plan]"))
		assert.Equal(t, "3", r.PostForm.Get("items[0][quantity]"))
		assert.Equal(t, "true", r.PostForm.Get("trial_from_plan"))
		assert.Equal(t, "error_if_incomplete", r.PostForm.Get("payment_behavior"))
		writeJSON(w, http.StatusOK, `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"trialing","current_period_start":1700000000,"current_period_end":1702592000,"trial_start":1700000000,"trial_end":1701209600,"created":1700000000,"items":{"object":"list","data":[{"id":"si_1","quantity":3,"plan":{"id":"gold"}}]}}`)
	})
	p := newFakeStripe(t, mux)

	sub, err := p.CreateSubscription(context.Background(), billing.SubscriptionParams{
		CustomerStripeID: "cus_1",
		PlanID:           "gold",
		Quantity:         3,
		TrialFromPlan:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.StripeID)
	assert.Equal(t, billing.StatusTrialing, sub.Status)
	assert.Equal(t, "gold", sub.PlanID)
	assert.Equal(t, int64(3), sub.Quantity)
	require.NotNil(t, sub.TrialEnd)
	assert.Equal(t, int64(1701209600), sub.TrialEnd.Unix())
	assert.Nil(t, sub.CanceledAt)
}

func TestStripeProviderSwitchPlan(t *testing.T) {
	t.Parallel()

	const body = `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","current_period_start":1700000000,"current_period_end":1702592000,"created":1700000000,"items":{"object":"list","data":[{"id":"si_1","quantity":1,"plan":{"id":"%s"}}]}}`

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/subscriptions/sub_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, fmt.Sprintf(body, "free"))
	})
	mux.HandleFunc("POST /v1/subscriptions/sub_1", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "si_1", r.PostForm.Get("items[0][id]"))
		assert.Equal(t, "gold", r.PostForm.Get("items[0][plan]"))
		assert.Equal(t, "error_if_incomplete", r.PostForm.Get("payment_behavior"))
		writeJSON(w, http.StatusOK, fmt.Sprintf(body, "gold"))
	})
	p := newFakeStripe(t, mux)

	sub, err := p.UpdateSubscription(context.Background(), "sub_1", billing.SubscriptionUpdate{PlanID: "gold"})
	require.NoError(t, err)
	assert.Equal(t, "gold", sub.PlanID)
}

func TestStripeProviderListPlans(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/plans", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"object":"list","has_more":false,"url":"/v1/plans","data":[
			{"id":"gold","object":"plan","nickname":"Gold","amount":999,"currency":"usd","interval":"month","interval_count":1,"active":true},
			{"id":"team","object":"plan","amount":4900,"currency":"usd","interval":"year","interval_count":1,"active":true,"product":{"id":"prod_1","object":"product","name":"Team"}}
		]}`)
	})
	p := newFakeStripe(t, mux)

	plans, err := p.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Gold", plans[0].Name)
	assert.Equal(t, "Team", plans[1].Name)
	assert.Equal(t, billing.IntervalYear, plans[1].Interval)
}

func TestStripeProviderRetrieveEventData(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/events/evt_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)
	})
	p := newFakeStripe(t, mux)

	data, err := p.RetrieveEventData(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"in_1","object":"invoice"}`, string(data))
}
