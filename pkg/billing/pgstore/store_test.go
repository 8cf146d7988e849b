package pgstore_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing/pgstore"
	"github.com/dmitrymomot/stripekit/pkg/pg"
)

func setupStore(t *testing.T) *pgstore.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping container tests")
	}
	_ = provider.Close()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("stripekit_test"),
		postgres.WithUsername("stripekit"),
		postgres.WithPassword("stripekit"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := pg.Config{
		ConnectionString:  dsn,
		MaxOpenConns:      4,
		MaxIdleConns:      1,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Hour,
		RetryAttempts:     3,
		RetryInterval:     time.Second,
		MigrationsTable:   "stripekit_schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := slog.New(slog.DiscardHandler)
	require.NoError(t, pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log))

	return pgstore.New(pool)
}

func TestNewPanicsWithoutPool(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { pgstore.New(nil) })
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := pgstore.Migrations.ReadDir(pgstore.MigrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_billing.sql", entries[0].Name())
}

func TestStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	customer := &billing.Customer{
		StripeID:     "cus_pg_1",
		SubscriberID: "user-1",
		Email:        "user1@example.com",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("customers", func(t *testing.T) {
		require.NoError(t, store.CreateCustomer(ctx, customer))
		assert.NotEqual(t, uuid.Nil, customer.ID)

		dup := &billing.Customer{StripeID: "cus_pg_other", SubscriberID: "user-1"}
		assert.ErrorIs(t, store.CreateCustomer(ctx, dup), billing.ErrCustomerExists)

		live := &billing.Customer{StripeID: "cus_pg_live", SubscriberID: "user-1", Livemode: true}
		require.NoError(t, store.CreateCustomer(ctx, live))

		got, err := store.GetCustomerBySubscriber(ctx, "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, customer.ID, got.ID)
		assert.Equal(t, "cus_pg_1", got.StripeID)
		assert.True(t, got.CreatedAt.Equal(now))

		got, err = store.GetCustomerByStripeID(ctx, "cus_pg_live")
		require.NoError(t, err)
		assert.True(t, got.Livemode)

		_, err = store.GetCustomerBySubscriber(ctx, "nobody", false)
		assert.ErrorIs(t, err, billing.ErrCustomerNotFound)

		customer.DefaultSourceID = "card_pg_1"
		customer.Delinquent = true
		require.NoError(t, store.UpdateCustomer(ctx, customer))
		got, err = store.GetCustomerByStripeID(ctx, "cus_pg_1")
		require.NoError(t, err)
		assert.Equal(t, "card_pg_1", got.DefaultSourceID)
		assert.True(t, got.Delinquent)

		missing := &billing.Customer{ID: uuid.New()}
		assert.ErrorIs(t, store.UpdateCustomer(ctx, missing), billing.ErrCustomerNotFound)
	})

	t.Run("cards", func(t *testing.T) {
		card := &billing.Card{StripeID: "card_pg_1", CustomerID: customer.ID, Brand: "Visa", Last4: "4242", CreatedAt: now}
		require.NoError(t, store.SaveCard(ctx, card))
		firstID := card.ID

		again := &billing.Card{StripeID: "card_pg_1", CustomerID: customer.ID, Brand: "Visa", Last4: "4242", ExpYear: 2030}
		require.NoError(t, store.SaveCard(ctx, again))
		assert.Equal(t, firstID, again.ID)

		cards, err := store.ListCards(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, int64(2030), cards[0].ExpYear)

		require.NoError(t, store.DeleteCard(ctx, "card_pg_1"))
		assert.ErrorIs(t, store.DeleteCard(ctx, "card_pg_1"), billing.ErrCardNotFound)

		got, err := store.GetCustomerByStripeID(ctx, "cus_pg_1")
		require.NoError(t, err)
		assert.Empty(t, got.DefaultSourceID)
	})

	t.Run("subscriptions", func(t *testing.T) {
		older := &billing.Subscription{
			StripeID: "sub_pg_old", CustomerID: customer.ID, PlanID: "gold",
			Status: billing.StatusCanceled, Quantity: 1,
			CurrentPeriodStart: now.AddDate(0, -2, 0), CurrentPeriodEnd: now.AddDate(0, -1, 0),
			CreatedAt: now.AddDate(0, -2, 0),
		}
		trialEnd := now.AddDate(0, 0, 14)
		newer := &billing.Subscription{
			StripeID: "sub_pg_new", CustomerID: customer.ID, PlanID: "trial",
			Status: billing.StatusTrialing, Quantity: 1,
			CurrentPeriodStart: now, CurrentPeriodEnd: trialEnd,
			TrialStart: &now, TrialEnd: &trialEnd,
			CreatedAt: now,
		}
		require.NoError(t, store.SaveSubscription(ctx, older))
		require.NoError(t, store.SaveSubscription(ctx, newer))

		subs, err := store.ListSubscriptions(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, "sub_pg_new", subs[0].StripeID)
		assert.Equal(t, billing.StatusTrialing, subs[0].Status)
		require.NotNil(t, subs[0].TrialEnd)
		assert.True(t, subs[0].TrialEnd.Equal(trialEnd))
		assert.Nil(t, subs[1].CanceledAt)

		newer.Status = billing.StatusActive
		newer.ID = uuid.Nil
		newer.CreatedAt = time.Time{}
		require.NoError(t, store.SaveSubscription(ctx, newer))
		assert.Equal(t, subs[0].ID, newer.ID)
		assert.True(t, newer.CreatedAt.Equal(now))

		got, err := store.GetSubscriptionByStripeID(ctx, "sub_pg_new")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, got.Status)

		_, err = store.GetSubscriptionByStripeID(ctx, "sub_missing")
		assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
	})

	t.Run("plans", func(t *testing.T) {
		require.NoError(t, store.SavePlan(ctx, &billing.Plan{ID: "gold", Name: "Gold", Amount: 999, Currency: "usd", Interval: billing.IntervalMonth, IntervalCount: 1, Active: true}))
		require.NoError(t, store.SavePlan(ctx, &billing.Plan{ID: "free", Name: "Free", Currency: "usd", Interval: billing.IntervalMonth, IntervalCount: 1, Active: true}))
		require.NoError(t, store.SavePlan(ctx, &billing.Plan{ID: "gold", Name: "Gold Plus", Amount: 1299, Currency: "usd", Interval: billing.IntervalYear, IntervalCount: 1}))

		plans, err := store.ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "free", plans[0].ID)

		gold, err := store.GetPlan(ctx, "gold")
		require.NoError(t, err)
		assert.Equal(t, "Gold Plus", gold.Name)
		assert.Equal(t, billing.IntervalYear, gold.Interval)
		assert.False(t, gold.Active)

		_, err = store.GetPlan(ctx, "platinum")
		assert.ErrorIs(t, err, billing.ErrPlanNotFound)
	})

	t.Run("invoices", func(t *testing.T) {
		inv := &billing.Invoice{
			StripeID: "in_pg_1", CustomerID: customer.ID, Status: billing.InvoiceOpen,
			AmountDue: 999, Currency: "usd", PeriodStart: now, PeriodEnd: now, CreatedAt: now,
		}
		require.NoError(t, store.SaveInvoice(ctx, inv))
		firstID := inv.ID

		paid := *inv
		paid.ID = uuid.Nil
		paid.Status = billing.InvoicePaid
		paid.Paid = true
		require.NoError(t, store.SaveInvoice(ctx, &paid))
		assert.Equal(t, firstID, paid.ID)

		invoices, err := store.ListInvoices(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.True(t, invoices[0].Paid)
		assert.Equal(t, billing.InvoicePaid, invoices[0].Status)
	})

	t.Run("idempotency keys", func(t *testing.T) {
		first, err := store.GetOrCreateIdempotencyKey(ctx, "customer:create:user-1", false)
		require.NoError(t, err)
		second, err := store.GetOrCreateIdempotencyKey(ctx, "customer:create:user-1", false)
		require.NoError(t, err)
		assert.Equal(t, first.Key, second.Key)

		live, err := store.GetOrCreateIdempotencyKey(ctx, "customer:create:user-1", true)
		require.NoError(t, err)
		assert.NotEqual(t, first.Key, live.Key)

		require.NoError(t, store.DeleteIdempotencyKey(ctx, "customer:create:user-1", false))
		fresh, err := store.GetOrCreateIdempotencyKey(ctx, "customer:create:user-1", false)
		require.NoError(t, err)
		assert.NotEqual(t, first.Key, fresh.Key)
	})

	t.Run("triggers", func(t *testing.T) {
		trigger := &billing.WebhookEventTrigger{
			ID:        uuid.New(),
			RemoteIP:  "10.0.0.1",
			Headers:   map[string]string{"Stripe-Signature": "t=1,v1=abc"},
			Body:      `{"id":"evt_1"}`,
			CreatedAt: now,
		}
		require.NoError(t, store.CreateTrigger(ctx, trigger))

		trigger.Valid = true
		trigger.Processed = true
		trigger.EventID = "evt_1"
		require.NoError(t, store.UpdateTrigger(ctx, trigger))

		got, err := store.GetTrigger(ctx, trigger.ID)
		require.NoError(t, err)
		assert.True(t, got.Valid)
		assert.True(t, got.Processed)
		assert.Equal(t, "evt_1", got.EventID)
		assert.Equal(t, "t=1,v1=abc", got.Headers["Stripe-Signature"])

		_, err = store.GetTrigger(ctx, uuid.New())
		assert.ErrorIs(t, err, billing.ErrTriggerNotFound)
		assert.ErrorIs(t, store.UpdateTrigger(ctx, &billing.WebhookEventTrigger{ID: uuid.New()}), billing.ErrTriggerNotFound)
	})

	t.Run("events", func(t *testing.T) {
		event := &billing.Event{
			ID:         "evt_pg_1",
			Type:       "invoice.payment_succeeded",
			APIVersion: "2024-09-30.acacia",
			Data:       json.RawMessage(`{"id":"in_pg_1"}`),
			CreatedAt:  now,
			ReceivedAt: now,
		}
		require.NoError(t, store.CreateEvent(ctx, event))
		assert.ErrorIs(t, store.CreateEvent(ctx, event), billing.ErrEventExists)

		require.NoError(t, store.MarkEventProcessed(ctx, "evt_pg_1"))
		got, err := store.GetEvent(ctx, "evt_pg_1")
		require.NoError(t, err)
		assert.True(t, got.Processed)
		assert.JSONEq(t, `{"id":"in_pg_1"}`, string(got.Data))
		assert.Empty(t, got.PreviousAttributes)

		_, err = store.GetEvent(ctx, "evt_missing")
		assert.ErrorIs(t, err, billing.ErrEventNotFound)
		assert.ErrorIs(t, store.MarkEventProcessed(ctx, "evt_missing"), billing.ErrEventNotFound)
	})
}
