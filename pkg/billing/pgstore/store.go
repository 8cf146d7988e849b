package pgstore

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/pg"
)

// Migrations holds the goose schema for the billing tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations to pass to pg.Migrate.
const MigrationsDir = "migrations"

// ErrQueryFailed wraps any database error that has no billing meaning.
var ErrQueryFailed = errors.New("billing store query failed")

// Store is a billing.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ billing.Store = (*Store)(nil)

// New returns a Store on pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &Store{pool: pool}
}

func queryErr(err error) error {
	return errors.Join(ErrQueryFailed, err)
}

const customerColumns = `id, stripe_id, subscriber_id, email, default_source_id, livemode,
	balance, currency, delinquent, created_at, updated_at`

func scanCustomer(row pgx.Row) (*billing.Customer, error) {
	var c billing.Customer
	err := row.Scan(&c.ID, &c.StripeID, &c.SubscriberID, &c.Email, &c.DefaultSourceID, &c.Livemode,
		&c.Balance, &c.Currency, &c.Delinquent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, queryErr(err)
	}
	return &c, nil
}

func (s *Store) GetCustomerBySubscriber(ctx context.Context, subscriberID string, livemode bool) (*billing.Customer, error) {
	return scanCustomer(s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM billing_customers WHERE subscriber_id = $1 AND livemode = $2`,
		subscriberID, livemode))
}

func (s *Store) GetCustomerByStripeID(ctx context.Context, stripeID string) (*billing.Customer, error) {
	return scanCustomer(s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM billing_customers WHERE stripe_id = $1`, stripeID))
}

func (s *Store) CreateCustomer(ctx context.Context, c *billing.Customer) error {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO billing_customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, c.StripeID, c.SubscriberID, c.Email, c.DefaultSourceID, c.Livemode,
		c.Balance, c.Currency, c.Delinquent, orNow(c.CreatedAt), orNow(c.UpdatedAt))
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return billing.ErrCustomerExists
		}
		return queryErr(err)
	}
	c.ID = id
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *billing.Customer) error {
	tag, err := s.pool.Exec(ctx, `UPDATE billing_customers SET
		stripe_id = $2, email = $3, default_source_id = $4, balance = $5,
		currency = $6, delinquent = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.StripeID, c.Email, c.DefaultSourceID, c.Balance,
		c.Currency, c.Delinquent, orNow(c.UpdatedAt))
	if err != nil {
		return queryErr(err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrCustomerNotFound
	}
	return nil
}

func (s *Store) SaveCard(ctx context.Context, card *billing.Card) error {
	id := card.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO billing_cards
		(id, stripe_id, customer_id, brand, last4, exp_month, exp_year, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (stripe_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			brand = EXCLUDED.brand,
			last4 = EXCLUDED.last4,
			exp_month = EXCLUDED.exp_month,
			exp_year = EXCLUDED.exp_year,
			fingerprint = EXCLUDED.fingerprint
		RETURNING id, created_at`,
		id, card.StripeID, card.CustomerID, card.Brand, card.Last4,
		card.ExpMonth, card.ExpYear, card.Fingerprint, orNow(card.CreatedAt),
	).Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		return queryErr(err)
	}
	return nil
}

// DeleteCard removes the card and clears it as any customer's default source.
func (s *Store) DeleteCard(ctx context.Context, stripeID string) error {
	return pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM billing_cards WHERE stripe_id = $1`, stripeID)
		if err != nil {
			return queryErr(err)
		}
		if tag.RowsAffected() == 0 {
			return billing.ErrCardNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE billing_customers SET default_source_id = '', updated_at = NOW() WHERE default_source_id = $1`,
			stripeID); err != nil {
			return queryErr(err)
		}
		return nil
	})
}

func (s *Store) ListCards(ctx context.Context, customerID uuid.UUID) ([]billing.Card, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, stripe_id, customer_id, brand, last4, exp_month, exp_year,
		fingerprint, created_at FROM billing_cards WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, queryErr(err)
	}
	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Card, error) {
		var c billing.Card
		err := row.Scan(&c.ID, &c.StripeID, &c.CustomerID, &c.Brand, &c.Last4,
			&c.ExpMonth, &c.ExpYear, &c.Fingerprint, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, queryErr(err)
	}
	return cards, nil
}

const subscriptionColumns = `id, stripe_id, customer_id, plan_id, status, quantity,
	current_period_start, current_period_end, cancel_at_period_end, canceled_at, ended_at,
	trial_start, trial_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (billing.Subscription, error) {
	var (
		sub    billing.Subscription
		status string
	)
	err := row.Scan(&sub.ID, &sub.StripeID, &sub.CustomerID, &sub.PlanID, &status, &sub.Quantity,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.CanceledAt, &sub.EndedAt,
		&sub.TrialStart, &sub.TrialEnd, &sub.CreatedAt, &sub.UpdatedAt)
	sub.Status = billing.SubscriptionStatus(status)
	return sub, err
}

func (s *Store) SaveSubscription(ctx context.Context, sub *billing.Subscription) error {
	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO billing_subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (stripe_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			quantity = EXCLUDED.quantity,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = EXCLUDED.canceled_at,
			ended_at = EXCLUDED.ended_at,
			trial_start = EXCLUDED.trial_start,
			trial_end = EXCLUDED.trial_end,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		id, sub.StripeID, sub.CustomerID, sub.PlanID, string(sub.Status), sub.Quantity,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.CanceledAt, sub.EndedAt,
		sub.TrialStart, sub.TrialEnd, orNow(sub.CreatedAt), orNow(sub.UpdatedAt),
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return queryErr(err)
	}
	return nil
}

func (s *Store) GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*billing.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM billing_subscriptions WHERE stripe_id = $1`, stripeID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, queryErr(err)
	}
	return &sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, customerID uuid.UUID) ([]billing.Subscription, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM billing_subscriptions
		WHERE customer_id = $1 ORDER BY created_at DESC, id`, customerID)
	if err != nil {
		return nil, queryErr(err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Subscription, error) {
		return scanSubscription(row)
	})
	if err != nil {
		return nil, queryErr(err)
	}
	return subs, nil
}

const planColumns = `id, name, amount, currency, interval, interval_count, trial_period_days, active, updated_at`

func scanPlan(row pgx.Row) (billing.Plan, error) {
	var (
		p        billing.Plan
		interval string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Amount, &p.Currency, &interval,
		&p.IntervalCount, &p.TrialPeriodDays, &p.Active, &p.UpdatedAt)
	p.Interval = billing.PlanInterval(interval)
	return p, err
}

func (s *Store) SavePlan(ctx context.Context, p *billing.Plan) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO billing_plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			interval = EXCLUDED.interval,
			interval_count = EXCLUDED.interval_count,
			trial_period_days = EXCLUDED.trial_period_days,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Amount, p.Currency, string(p.Interval),
		p.IntervalCount, p.TrialPeriodDays, p.Active, orNow(p.UpdatedAt))
	if err != nil {
		return queryErr(err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*billing.Plan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM billing_plans WHERE id = $1`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrPlanNotFound
		}
		return nil, queryErr(err)
	}
	return &p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]billing.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+planColumns+` FROM billing_plans ORDER BY amount, id`)
	if err != nil {
		return nil, queryErr(err)
	}
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Plan, error) {
		return scanPlan(row)
	})
	if err != nil {
		return nil, queryErr(err)
	}
	return plans, nil
}

const invoiceColumns = `id, stripe_id, customer_id, subscription_stripe_id, number, status, paid,
	amount_due, amount_paid, currency, attempt_count, period_start, period_end, hosted_url, created_at`

func (s *Store) SaveInvoice(ctx context.Context, inv *billing.Invoice) error {
	id := inv.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO billing_invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (stripe_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			subscription_stripe_id = EXCLUDED.subscription_stripe_id,
			number = EXCLUDED.number,
			status = EXCLUDED.status,
			paid = EXCLUDED.paid,
			amount_due = EXCLUDED.amount_due,
			amount_paid = EXCLUDED.amount_paid,
			currency = EXCLUDED.currency,
			attempt_count = EXCLUDED.attempt_count,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			hosted_url = EXCLUDED.hosted_url,
			created_at = EXCLUDED.created_at
		RETURNING id`,
		id, inv.StripeID, inv.CustomerID, inv.SubscriptionStripeID, inv.Number, string(inv.Status), inv.Paid,
		inv.AmountDue, inv.AmountPaid, inv.Currency, inv.AttemptCount, inv.PeriodStart, inv.PeriodEnd,
		inv.HostedURL, orNow(inv.CreatedAt),
	).Scan(&inv.ID)
	if err != nil {
		return queryErr(err)
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context, customerID uuid.UUID) ([]billing.Invoice, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM billing_invoices
		WHERE customer_id = $1 ORDER BY created_at DESC, id`, customerID)
	if err != nil {
		return nil, queryErr(err)
	}
	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Invoice, error) {
		var (
			inv    billing.Invoice
			status string
		)
		err := row.Scan(&inv.ID, &inv.StripeID, &inv.CustomerID, &inv.SubscriptionStripeID, &inv.Number,
			&status, &inv.Paid, &inv.AmountDue, &inv.AmountPaid, &inv.Currency, &inv.AttemptCount,
			&inv.PeriodStart, &inv.PeriodEnd, &inv.HostedURL, &inv.CreatedAt)
		inv.Status = billing.InvoiceStatus(status)
		return inv, err
	})
	if err != nil {
		return nil, queryErr(err)
	}
	return invoices, nil
}

// GetOrCreateIdempotencyKey relies on the no-op conflict update to return the
// stored key when one already exists.
func (s *Store) GetOrCreateIdempotencyKey(ctx context.Context, action string, livemode bool) (*billing.IdempotencyKey, error) {
	k := billing.IdempotencyKey{Action: action, Livemode: livemode}
	err := s.pool.QueryRow(ctx, `INSERT INTO billing_idempotency_keys (action, livemode, key, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (action, livemode) DO UPDATE SET action = EXCLUDED.action
		RETURNING key, created_at`,
		action, livemode, uuid.New(),
	).Scan(&k.Key, &k.CreatedAt)
	if err != nil {
		return nil, queryErr(err)
	}
	return &k, nil
}

func (s *Store) DeleteIdempotencyKey(ctx context.Context, action string, livemode bool) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM billing_idempotency_keys WHERE action = $1 AND livemode = $2`, action, livemode); err != nil {
		return queryErr(err)
	}
	return nil
}

const triggerColumns = `id, remote_ip, headers, body, valid, processed, exception, traceback,
	test_event, event_id, created_at, updated_at`

func (s *Store) CreateTrigger(ctx context.Context, t *billing.WebhookEventTrigger) error {
	headers := t.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO billing_webhook_triggers (`+triggerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.RemoteIP, headers, t.Body, t.Valid, t.Processed, t.Exception, t.Traceback,
		t.TestEvent, t.EventID, orNow(t.CreatedAt), orNow(t.UpdatedAt))
	if err != nil {
		return queryErr(err)
	}
	return nil
}

func (s *Store) UpdateTrigger(ctx context.Context, t *billing.WebhookEventTrigger) error {
	tag, err := s.pool.Exec(ctx, `UPDATE billing_webhook_triggers SET
		valid = $2, processed = $3, exception = $4, traceback = $5,
		test_event = $6, event_id = $7, updated_at = $8
		WHERE id = $1`,
		t.ID, t.Valid, t.Processed, t.Exception, t.Traceback,
		t.TestEvent, t.EventID, orNow(t.UpdatedAt))
	if err != nil {
		return queryErr(err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrTriggerNotFound
	}
	return nil
}

func (s *Store) GetTrigger(ctx context.Context, id uuid.UUID) (*billing.WebhookEventTrigger, error) {
	var t billing.WebhookEventTrigger
	err := s.pool.QueryRow(ctx, `SELECT `+triggerColumns+` FROM billing_webhook_triggers WHERE id = $1`, id).
		Scan(&t.ID, &t.RemoteIP, &t.Headers, &t.Body, &t.Valid, &t.Processed, &t.Exception, &t.Traceback,
			&t.TestEvent, &t.EventID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrTriggerNotFound
		}
		return nil, queryErr(err)
	}
	return &t, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*billing.Event, error) {
	var e billing.Event
	err := s.pool.QueryRow(ctx, `SELECT id, type, livemode, api_version, data, previous_attributes,
		processed, created_at, received_at FROM billing_events WHERE id = $1`, id).
		Scan(&e.ID, &e.Type, &e.Livemode, &e.APIVersion, &e.Data, &e.PreviousAttributes,
			&e.Processed, &e.CreatedAt, &e.ReceivedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrEventNotFound
		}
		return nil, queryErr(err)
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *billing.Event) error {
	data := e.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO billing_events
		(id, type, livemode, api_version, data, previous_attributes, processed, created_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Type, e.Livemode, e.APIVersion, string(data), nullableJSON(e.PreviousAttributes),
		e.Processed, orNow(e.CreatedAt), orNow(e.ReceivedAt))
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return billing.ErrEventExists
		}
		return queryErr(err)
	}
	return nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE billing_events SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return queryErr(err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrEventNotFound
	}
	return nil
}

func nullableJSON(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
