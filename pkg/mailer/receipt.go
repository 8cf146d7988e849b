package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

// ReceiptSender mails a receipt for each paid invoice.
type ReceiptSender struct {
	sender      Sender
	productName string
}

var _ billing.ReceiptSender = (*ReceiptSender)(nil)

// NewReceiptSender wraps sender. productName appears in the subject line.
func NewReceiptSender(sender Sender, productName string) *ReceiptSender {
	if sender == nil {
		panic("mailer: Sender is required")
	}
	if productName == "" {
		productName = "your subscription"
	}
	return &ReceiptSender{sender: sender, productName: productName}
}

// SendReceipt renders and sends the receipt. Customers without an e-mail
// address are skipped.
func (r *ReceiptSender) SendReceipt(ctx context.Context, rc billing.Receipt) error {
	if rc.Customer == nil || rc.Invoice == nil {
		return errors.Join(ErrInvalidParams, errors.New("receipt needs a customer and an invoice"))
	}
	if rc.Customer.Email == "" {
		return nil
	}

	body, err := Render(ctx, ReceiptEmail(rc))
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return r.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   rc.Customer.Email,
		Subject:  fmt.Sprintf("Receipt for %s", r.productName),
		BodyHTML: body,
		Tag:      "receipt",
	})
}

// ReceiptEmail is the HTML body of a payment receipt.
func ReceiptEmail(rc billing.Receipt) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		inv := rc.Invoice
		amount := billing.FormatAmount(inv.AmountPaid, inv.Currency)

		var planRow string
		if rc.Plan != nil {
			planRow = fmt.Sprintf("<tr><td>Plan</td><td>%s</td></tr>", templ.EscapeString(rc.Plan.Name))
		}
		number := inv.Number
		if number == "" {
			number = inv.StripeID
		}
		var period string
		if !inv.PeriodStart.IsZero() && !inv.PeriodEnd.IsZero() {
			period = fmt.Sprintf("<tr><td>Period</td><td>%s &ndash; %s</td></tr>",
				inv.PeriodStart.Format("Jan 2, 2006"), inv.PeriodEnd.Format("Jan 2, 2006"))
		}

		_, err := fmt.Fprintf(w, `<!doctype html><html><body>`+
			`<h1>Thanks for your payment</h1>`+
			`<table>`+
			`<tr><td>Invoice</td><td>%s</td></tr>%s%s`+
			`<tr><td>Amount paid</td><td>%s</td></tr>`+
			`</table></body></html>`,
			templ.EscapeString(number), planRow, period, templ.EscapeString(amount))
		return err
	})
}
