package billing

import "context"

// Receipt is the data of a payment confirmation e-mail.
type Receipt struct {
	Customer *Customer
	Invoice  *Invoice
	Plan     *Plan
}

// ReceiptSender delivers receipts for paid invoices.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, r Receipt) error
}

// ReceiptSenderFunc adapts a function to ReceiptSender.
type ReceiptSenderFunc func(ctx context.Context, r Receipt) error

func (f ReceiptSenderFunc) SendReceipt(ctx context.Context, r Receipt) error {
	return f(ctx, r)
}

type noopReceipts struct{}

func (noopReceipts) SendReceipt(context.Context, Receipt) error { return nil }
