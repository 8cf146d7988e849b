package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

const (
	// subscriberMetadataKey links a Stripe customer back to its subscriber.
	subscriberMetadataKey = "stripekit_subscriber"

	paymentBehaviorErrorIfIncomplete = "error_if_incomplete"
)

// StripeProvider implements Provider on a per-instance stripe-go client.
// No package-level API key is used.
type StripeProvider struct {
	api *client.API
}

var _ Provider = (*StripeProvider)(nil)

// StripeOption configures NewStripeProvider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backendURL string
	httpClient *http.Client
	log        *slog.Logger
	maxRetries int64
}

// WithStripeBackendURL points the client at another API host, e.g. a test server.
func WithStripeBackendURL(url string) StripeOption {
	return func(o *stripeOptions) { o.backendURL = url }
}

// WithStripeHTTPClient replaces the HTTP client built from Config.APITimeout.
func WithStripeHTTPClient(c *http.Client) StripeOption {
	return func(o *stripeOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithStripeLogger routes stripe-go's own logging to log.
func WithStripeLogger(log *slog.Logger) StripeOption {
	return func(o *stripeOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStripeMaxRetries sets network retries for idempotent-safe failures.
func WithStripeMaxRetries(n int64) StripeOption {
	return func(o *stripeOptions) { o.maxRetries = n }
}

// NewStripeProvider builds a provider for cfg.SecretKey.
func NewStripeProvider(cfg Config, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}

	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	o := stripeOptions{
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(&o)
	}

	backendConfig := func() *stripe.BackendConfig {
		bc := &stripe.BackendConfig{
			HTTPClient:        o.httpClient,
			LeveledLogger:     &stripeLogger{log: o.log.With(logger.Component("stripe"))},
			MaxNetworkRetries: stripe.Int64(o.maxRetries),
		}
		if o.backendURL != "" {
			bc.URL = stripe.String(o.backendURL)
		}
		return bc
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig()),
	}

	return &StripeProvider{api: client.New(cfg.SecretKey, backends)}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error) {
	cp := &stripe.CustomerParams{}
	cp.Context = ctx
	if params.Email != "" {
		cp.Email = stripe.String(params.Email)
	}
	cp.AddMetadata(subscriberMetadataKey, params.SubscriberID)
	if params.IdempotencyKey != "" {
		cp.SetIdempotencyKey(params.IdempotencyKey)
	}

	c, err := p.api.Customers.New(cp)
	if err != nil {
		return nil, wrapStripeError("create customer", err)
	}
	return customerFromStripe(c), nil
}

func (p *StripeProvider) DeleteCustomer(ctx context.Context, customerStripeID string) error {
	cp := &stripe.CustomerParams{}
	cp.Context = ctx
	if _, err := p.api.Customers.Del(customerStripeID, cp); err != nil {
		return wrapStripeError("delete customer", err)
	}
	return nil
}

func (p *StripeProvider) AttachCard(ctx context.Context, customerStripeID, token string, setDefault bool) (*Card, error) {
	cp := &stripe.CardParams{
		Customer: stripe.String(customerStripeID),
		Token:    stripe.String(token),
	}
	cp.Context = ctx

	card, err := p.api.Cards.New(cp)
	if err != nil {
		return nil, wrapStripeError("add card", err)
	}

	if setDefault {
		up := &stripe.CustomerParams{DefaultSource: stripe.String(card.ID)}
		up.Context = ctx
		if _, err := p.api.Customers.Update(customerStripeID, up); err != nil {
			return nil, wrapStripeError("set default card", err)
		}
	}
	return cardFromStripe(card), nil
}

func (p *StripeProvider) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	quantity := max(params.Quantity, 1)
	sp := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerStripeID),
		Items: []*stripe.SubscriptionItemsParams{{
			Plan:     stripe.String(params.PlanID),
			Quantity: stripe.Int64(quantity),
		}},
		// A failed first payment is an error rather than an incomplete subscription.
		PaymentBehavior: stripe.String(paymentBehaviorErrorIfIncomplete),
	}
	sp.Context = ctx
	if params.TrialFromPlan {
		sp.TrialFromPlan = stripe.Bool(true)
	}

	s, err := p.api.Subscriptions.New(sp)
	if err != nil {
		return nil, wrapStripeError("create subscription", err)
	}
	sub, _ := subscriptionFromStripe(s)
	return sub, nil
}

func (p *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionStripeID string, params SubscriptionUpdate) (*Subscription, error) {
	sp := &stripe.SubscriptionParams{}
	sp.Context = ctx
	if params.CancelAtPeriodEnd != nil {
		sp.CancelAtPeriodEnd = stripe.Bool(*params.CancelAtPeriodEnd)
	}

	if params.PlanID != "" || params.Quantity > 0 {
		gp := &stripe.SubscriptionParams{}
		gp.Context = ctx
		current, err := p.api.Subscriptions.Get(subscriptionStripeID, gp)
		if err != nil {
			return nil, wrapStripeError("get subscription", err)
		}
		item := &stripe.SubscriptionItemsParams{}
		if current.Items != nil && len(current.Items.Data) > 0 {
			item.ID = stripe.String(current.Items.Data[0].ID)
		}
		if params.PlanID != "" {
			item.Plan = stripe.String(params.PlanID)
		}
		if params.Quantity > 0 {
			item.Quantity = stripe.Int64(params.Quantity)
		}
		sp.Items = []*stripe.SubscriptionItemsParams{item}
		sp.PaymentBehavior = stripe.String(paymentBehaviorErrorIfIncomplete)
	}

	s, err := p.api.Subscriptions.Update(subscriptionStripeID, sp)
	if err != nil {
		return nil, wrapStripeError("update subscription", err)
	}
	sub, _ := subscriptionFromStripe(s)
	return sub, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionStripeID string) (*Subscription, error) {
	cp := &stripe.SubscriptionCancelParams{}
	cp.Context = ctx
	s, err := p.api.Subscriptions.Cancel(subscriptionStripeID, cp)
	if err != nil {
		return nil, wrapStripeError("cancel subscription", err)
	}
	sub, _ := subscriptionFromStripe(s)
	return sub, nil
}

func (p *StripeProvider) CreateInvoice(ctx context.Context, customerStripeID string) (*Invoice, error) {
	ip := &stripe.InvoiceParams{
		Customer:                    stripe.String(customerStripeID),
		PendingInvoiceItemsBehavior: stripe.String("include"),
	}
	ip.Context = ctx
	inv, err := p.api.Invoices.New(ip)
	if err != nil {
		return nil, wrapStripeError("create invoice", err)
	}
	out, _ := invoiceFromStripe(inv)
	return out, nil
}

func (p *StripeProvider) PayInvoice(ctx context.Context, invoiceStripeID string) (*Invoice, error) {
	pp := &stripe.InvoicePayParams{}
	pp.Context = ctx
	inv, err := p.api.Invoices.Pay(invoiceStripeID, pp)
	if err != nil {
		return nil, wrapStripeError("pay invoice", err)
	}
	out, _ := invoiceFromStripe(inv)
	return out, nil
}

func (p *StripeProvider) ListInvoices(ctx context.Context, customerStripeID string) ([]Invoice, error) {
	lp := &stripe.InvoiceListParams{Customer: stripe.String(customerStripeID)}
	lp.Context = ctx

	var out []Invoice
	it := p.api.Invoices.List(lp)
	for it.Next() {
		inv, _ := invoiceFromStripe(it.Invoice())
		out = append(out, *inv)
	}
	if err := it.Err(); err != nil {
		return nil, wrapStripeError("list invoices", err)
	}
	return out, nil
}

func (p *StripeProvider) ListPlans(ctx context.Context) ([]Plan, error) {
	lp := &stripe.PlanListParams{}
	lp.Context = ctx
	lp.AddExpand("data.product")

	var out []Plan
	it := p.api.Plans.List(lp)
	for it.Next() {
		out = append(out, *planFromStripe(it.Plan()))
	}
	if err := it.Err(); err != nil {
		return nil, wrapStripeError("list plans", err)
	}
	return out, nil
}

func (p *StripeProvider) RetrieveEventData(ctx context.Context, eventID string) (json.RawMessage, error) {
	ep := &stripe.EventParams{}
	ep.Context = ctx
	ev, err := p.api.Events.Get(eventID, ep)
	if err != nil {
		return nil, wrapStripeError("retrieve event", err)
	}
	if ev.Data == nil {
		return nil, nil
	}
	return ev.Data.Raw, nil
}

// wrapStripeError converts stripe-go failures to *ProviderError.
func wrapStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = "payment provider rejected the request"
		}
		return &ProviderError{
			Op:         op,
			Code:       string(se.Code),
			Type:       string(se.Type),
			Message:    msg,
			StatusCode: se.HTTPStatusCode,
			RequestID:  se.RequestID,
			Err:        err,
		}
	}
	return &ProviderError{Op: op, Message: "payment provider is unavailable", Err: err}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := unixTime(sec)
	return &t
}

func customerFromStripe(c *stripe.Customer) *Customer {
	out := &Customer{
		StripeID:     c.ID,
		SubscriberID: c.Metadata[subscriberMetadataKey],
		Email:        c.Email,
		Livemode:     c.Livemode,
		Balance:      c.Balance,
		Currency:     string(c.Currency),
		Delinquent:   c.Delinquent,
	}
	if c.DefaultSource != nil {
		out.DefaultSourceID = c.DefaultSource.ID
	}
	return out
}

func cardFromStripe(c *stripe.Card) *Card {
	return &Card{
		StripeID:    c.ID,
		Brand:       string(c.Brand),
		Last4:       c.Last4,
		ExpMonth:    c.ExpMonth,
		ExpYear:     c.ExpYear,
		Fingerprint: c.Fingerprint,
	}
}

// subscriptionFromStripe also returns the owning customer's Stripe id.
func subscriptionFromStripe(s *stripe.Subscription) (*Subscription, string) {
	sub := &Subscription{
		StripeID:           s.ID,
		Status:             SubscriptionStatus(s.Status),
		Quantity:           1,
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CanceledAt:         unixPtr(s.CanceledAt),
		EndedAt:            unixPtr(s.EndedAt),
		TrialStart:         unixPtr(s.TrialStart),
		TrialEnd:           unixPtr(s.TrialEnd),
		CreatedAt:          unixTime(s.Created),
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		if item.Quantity > 0 {
			sub.Quantity = item.Quantity
		}
		switch {
		case item.Plan != nil:
			sub.PlanID = item.Plan.ID
		case item.Price != nil:
			sub.PlanID = item.Price.ID
		}
	}

	var customerID string
	if s.Customer != nil {
		customerID = s.Customer.ID
	}
	return sub, customerID
}

// invoiceFromStripe also returns the owning customer's Stripe id.
func invoiceFromStripe(i *stripe.Invoice) (*Invoice, string) {
	inv := &Invoice{
		StripeID:     i.ID,
		Number:       i.Number,
		Status:       InvoiceStatus(i.Status),
		Paid:         i.Paid,
		AmountDue:    i.AmountDue,
		AmountPaid:   i.AmountPaid,
		Currency:     string(i.Currency),
		AttemptCount: i.AttemptCount,
		PeriodStart:  unixTime(i.PeriodStart),
		PeriodEnd:    unixTime(i.PeriodEnd),
		HostedURL:    i.HostedInvoiceURL,
		CreatedAt:    unixTime(i.Created),
	}
	if i.Subscription != nil {
		inv.SubscriptionStripeID = i.Subscription.ID
	}

	var customerID string
	if i.Customer != nil {
		customerID = i.Customer.ID
	}
	return inv, customerID
}

func planFromStripe(p *stripe.Plan) *Plan {
	name := p.Nickname
	if name == "" && p.Product != nil && p.Product.Name != "" {
		name = p.Product.Name
	}
	if name == "" {
		name = p.ID
	}
	return &Plan{
		ID:              p.ID,
		Name:            name,
		Amount:          p.Amount,
		Currency:        string(p.Currency),
		Interval:        PlanInterval(p.Interval),
		IntervalCount:   max(p.IntervalCount, 1),
		TrialPeriodDays: p.TrialPeriodDays,
		Active:          p.Active,
	}
}

// stripeLogger adapts slog to stripe-go's leveled logger.
type stripeLogger struct {
	log *slog.Logger
}

func (l *stripeLogger) Debugf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *stripeLogger) Infof(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *stripeLogger) Warnf(format string, v ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *stripeLogger) Errorf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
