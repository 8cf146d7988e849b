package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// SendInvoice bills the customer's pending items right away. It reports
// false with no error when Stripe has nothing to invoice.
func (s *Service) SendInvoice(ctx context.Context, c *Customer) (bool, error) {
	inv, err := s.provider.CreateInvoice(ctx, c.StripeID)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.IsInvalidRequest() {
			return false, nil
		}
		return false, err
	}

	paid, err := s.provider.PayInvoice(ctx, inv.StripeID)
	if err != nil {
		// The open invoice is still worth mirroring for the history page.
		s.saveInvoice(ctx, c, inv)
		return false, err
	}
	s.saveInvoice(ctx, c, paid)
	return true, nil
}

// RetryUnpaidInvoices pays every open invoice again, typically after the
// card was changed.
func (s *Service) RetryUnpaidInvoices(ctx context.Context, c *Customer) error {
	invoices, err := s.SyncInvoices(ctx, c)
	if err != nil {
		return err
	}

	var errs []error
	for i := range invoices {
		if !invoices[i].IsRetryable() {
			continue
		}
		paid, err := s.provider.PayInvoice(ctx, invoices[i].StripeID)
		if err != nil {
			if isAlreadyPaid(err) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		s.saveInvoice(ctx, c, paid)
	}
	return errors.Join(errs...)
}

// SyncInvoices mirrors the customer's Stripe invoices and returns them
// newest first.
func (s *Service) SyncInvoices(ctx context.Context, c *Customer) ([]Invoice, error) {
	remote, err := s.provider.ListInvoices(ctx, c.StripeID)
	if err != nil {
		return nil, err
	}
	for i := range remote {
		inv := remote[i]
		inv.CustomerID = c.ID
		if err := s.store.SaveInvoice(ctx, &inv); err != nil {
			return nil, err
		}
	}
	return s.store.ListInvoices(ctx, c.ID)
}

// Invoices lists the stored invoices, newest first.
func (s *Service) Invoices(ctx context.Context, c *Customer) ([]Invoice, error) {
	return s.store.ListInvoices(ctx, c.ID)
}

func (s *Service) saveInvoice(ctx context.Context, c *Customer, inv *Invoice) {
	inv.CustomerID = c.ID
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.Now()
	}
	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		s.log.WarnContext(ctx, "failed to save invoice",
			logger.CustomerID(c.StripeID), logger.Error(err))
	}
}

func isAlreadyPaid(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	return strings.Contains(strings.ToLower(perr.Message), "already paid") ||
		perr.Code == "invoice_already_paid"
}
