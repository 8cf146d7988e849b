package billing

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// Service runs the billing operations for one Stripe account and mode.
type Service struct {
	cfg      Config
	provider Provider
	store    Store
	log      *slog.Logger
	now      func() time.Time
	receipts ReceiptSender
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReceiptSender enables receipt delivery for paid invoices when
// Config.SendReceipts is set.
func WithReceiptSender(r ReceiptSender) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.receipts = r
		}
	}
}

// NewService creates a Service. Panics if provider or store is nil.
func NewService(cfg Config, provider Provider, store Store, opts ...ServiceOption) *Service {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}

	s := &Service{
		cfg:      cfg,
		provider: provider,
		store:    store,
		log:      slog.Default(),
		now:      time.Now,
		receipts: noopReceipts{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("billing"))
	return s
}

// Config returns the settings the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Now is the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}
