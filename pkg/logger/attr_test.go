package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestBillingIDs(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
	}{
		{logger.SubscriberID("u1"), "subscriber_id"},
		{logger.CustomerID("cus_1"), "customer_id"},
		{logger.SubscriptionID("sub_1"), "subscription_id"},
		{logger.PlanID("gold"), "plan_id"},
		{logger.StripeEventID("evt_1"), "stripe_event_id"},
		{logger.TriggerID(int64(7)), "trigger_id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
	}

	assert.True(t, logger.CustomerID("").Equal(slog.Attr{}))
	assert.True(t, logger.TriggerID(nil).Equal(slog.Attr{}))
}

func TestRequestID(t *testing.T) {
	attr := logger.RequestID("abc")
	require.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
}
