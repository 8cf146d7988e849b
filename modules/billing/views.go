package billing

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/websession"
)

// PageData is shared by every billing page.
type PageData struct {
	BasePath       string
	Flashes        []websession.Flash
	Customer       *billing.Customer
	Subscription   *billing.Subscription
	PublishableKey string
	Now            time.Time
}

// URL joins p onto the module's base path.
func (p PageData) URL(path string) string {
	return p.BasePath + path
}

type AccountPage struct {
	PageData
	Plans                []billing.Plan
	Cards                []billing.Card
	HasValidSubscription bool
}

type SubscribePage struct {
	PageData
	Plans []billing.Plan
}

type ConfirmPage struct {
	PageData
	Plan   *billing.Plan
	Form   ConfirmRequest
	Errors handler.ValidationError
}

type CancelPage struct {
	PageData
	Next string
}

type ChangeCardPage struct {
	PageData
	Cards       []billing.Card
	Errors      handler.ValidationError
	StripeError string
}

type HistoryPage struct {
	PageData
	Invoices []billing.Invoice
}

// Views renders the billing pages. Embed DefaultViews to override a subset.
type Views interface {
	Account(AccountPage) templ.Component
	Subscribe(SubscribePage) templ.Component
	Confirm(ConfirmPage) templ.Component
	Cancel(CancelPage) templ.Component
	ChangeCard(ChangeCardPage) templ.Component
	History(HistoryPage) templ.Component
	ErrorPage(handler.ErrorPageParams) templ.Component
	ErrorToast(handler.ErrorToastParams) templ.Component
}

// DefaultViews is plain, unstyled HTML with datastar-friendly element ids.
type DefaultViews struct{}

var _ Views = DefaultViews{}

type htmlWriter struct {
	b strings.Builder
}

func (h *htmlWriter) raw(s string) { h.b.WriteString(s) }

func (h *htmlWriter) rawf(format string, args ...any) {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = templ.EscapeString(s)
		}
	}
	fmt.Fprintf(&h.b, format, args...)
}

func page(title string, data PageData, body func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{}
		h.rawf(`<!doctype html><html><head><meta charset="utf-8"><title>%s</title></head><body>`, title)
		h.raw(`<nav><a href="` + templ.EscapeString(data.URL("/")) + `">Account</a> `)
		h.raw(`<a href="` + templ.EscapeString(data.URL("/subscribe")) + `">Plans</a> `)
		h.raw(`<a href="` + templ.EscapeString(data.URL("/history")) + `">History</a></nav>`)
		h.raw(`<div id="toast-container">`)
		for _, f := range data.Flashes {
			h.rawf(`<p class="flash flash-%s">%s</p>`, f.Kind, f.Message)
		}
		h.raw(`</div><main>`)
		h.rawf(`<h1>%s</h1>`, title)
		body(h)
		h.raw(`</main></body></html>`)
		_, err := io.WriteString(w, h.b.String())
		return err
	})
}

func writeSubscription(h *htmlWriter, sub *billing.Subscription, plans []billing.Plan) {
	if sub == nil {
		h.raw(`<p id="subscription">No active subscription.</p>`)
		return
	}
	name := sub.PlanID
	for _, p := range plans {
		if p.ID == sub.PlanID {
			name = p.Name
		}
	}
	h.rawf(`<p id="subscription">Plan: %s. Status: %s.`, name, string(sub.Status))
	if sub.CancelAtPeriodEnd {
		h.rawf(` Ends on %s.`, sub.PeriodEnd().Format("Jan 2, 2006"))
	} else if !sub.CurrentPeriodEnd.IsZero() {
		h.rawf(` Renews on %s.`, sub.CurrentPeriodEnd.Format("Jan 2, 2006"))
	}
	h.raw(`</p>`)
}

func writePlans(h *htmlWriter, data PageData, plans []billing.Plan) {
	h.raw(`<ul id="plans">`)
	for _, p := range plans {
		current := data.Subscription != nil && data.Subscription.PlanID == p.ID && data.Subscription.IsValid(data.Now)
		h.rawf(`<li>%s &middot; %s`, p.Name, p.DisplayPrice())
		if p.TrialPeriodDays > 0 {
			h.rawf(` &middot; %d day trial`, p.TrialPeriodDays)
		}
		if current {
			h.raw(` <strong>current plan</strong>`)
		} else {
			h.rawf(` <a href="%s">Choose</a>`, data.URL("/confirm/"+p.ID))
		}
		h.raw(`</li>`)
	}
	h.raw(`</ul>`)
}

func writeCards(h *htmlWriter, c *billing.Customer, cards []billing.Card) {
	h.raw(`<ul id="cards">`)
	for _, card := range cards {
		h.rawf(`<li>%s ending in %s, expires %02d/%d`, card.Brand, card.Last4, card.ExpMonth, card.ExpYear)
		if c != nil && c.DefaultSourceID == card.StripeID {
			h.raw(` (default)`)
		}
		h.raw(`</li>`)
	}
	h.raw(`</ul>`)
}

func writeErrors(h *htmlWriter, field string, errs handler.ValidationError) {
	for _, msg := range errs[field] {
		h.rawf(`<p class="error" data-field="%s">%s</p>`, field, msg)
	}
}

func writeCardForm(h *htmlWriter, publishableKey string) {
	h.rawf(`<div id="card-element" data-stripe-key="%s"></div>`, publishableKey)
	h.raw(`<input type="hidden" name="stripe_token" id="stripe-token">`)
}

func (DefaultViews) Account(p AccountPage) templ.Component {
	return page("Account", p.PageData, func(h *htmlWriter) {
		if p.Customer != nil {
			h.rawf(`<p id="customer">Customer %s</p>`, p.Customer.StripeID)
			if p.Customer.Delinquent {
				h.raw(`<p class="warning">Your last payment failed.</p>`)
			}
		}
		writeSubscription(h, p.Subscription, p.Plans)
		if !p.HasValidSubscription {
			h.rawf(`<p><a href="%s">Subscribe</a></p>`, p.URL("/subscribe"))
		} else {
			h.rawf(`<p><a href="%s">Cancel subscription</a></p>`, p.URL("/cancel"))
		}
		h.raw(`<h2>Cards</h2>`)
		writeCards(h, p.Customer, p.Cards)
		h.rawf(`<p><a href="%s">Change card</a></p>`, p.URL("/change-card"))
	})
}

func (DefaultViews) Subscribe(p SubscribePage) templ.Component {
	return page("Choose a plan", p.PageData, func(h *htmlWriter) {
		writeSubscription(h, p.Subscription, p.Plans)
		writePlans(h, p.PageData, p.Plans)
	})
}

func (DefaultViews) Confirm(p ConfirmPage) templ.Component {
	return page("Confirm your plan", p.PageData, func(h *htmlWriter) {
		h.rawf(`<p id="plan">%s &middot; %s</p>`, p.Plan.Name, p.Plan.DisplayPrice())
		h.rawf(`<form id="confirm-form" method="post" action="%s">`, p.URL("/confirm/"+p.Plan.ID))
		writeErrors(h, "__all__", p.Errors)
		h.rawf(`<input type="hidden" name="plan" value="%s">`, p.Plan.ID)
		writeErrors(h, "plan", p.Errors)
		quantity := max(p.Form.Quantity, 1)
		h.rawf(`<label>Quantity <input type="number" name="quantity" min="1" value="%d"></label>`, quantity)
		writeErrors(h, "quantity", p.Errors)
		if p.Customer == nil || !p.Customer.HasPaymentMethod() {
			writeCardForm(h, p.PublishableKey)
		}
		h.raw(`<button type="submit">Subscribe</button></form>`)
	})
}

func (DefaultViews) Cancel(p CancelPage) templ.Component {
	return page("Cancel subscription", p.PageData, func(h *htmlWriter) {
		writeSubscription(h, p.Subscription, nil)
		action := p.URL("/cancel")
		if p.Next != "" {
			action += "?next=" + url.QueryEscape(p.Next)
		}
		h.rawf(`<form id="cancel-form" method="post" action="%s">`, action)
		h.raw(`<button type="submit">Cancel my subscription</button></form>`)
	})
}

func (DefaultViews) ChangeCard(p ChangeCardPage) templ.Component {
	return page("Change card", p.PageData, func(h *htmlWriter) {
		if p.StripeError != "" {
			h.rawf(`<p class="error" id="stripe-error">%s</p>`, p.StripeError)
		}
		writeCards(h, p.Customer, p.Cards)
		h.rawf(`<form id="card-form" method="post" action="%s">`, p.URL("/change-card"))
		writeCardForm(h, p.PublishableKey)
		writeErrors(h, "stripe_token", p.Errors)
		h.raw(`<button type="submit">Update card</button></form>`)
	})
}

func (DefaultViews) History(p HistoryPage) templ.Component {
	return page("Payment history", p.PageData, func(h *htmlWriter) {
		if len(p.Invoices) == 0 {
			h.raw(`<p id="invoices">No invoices yet.</p>`)
			return
		}
		h.raw(`<table id="invoices"><tr><th>Date</th><th>Invoice</th><th>Amount</th><th>Status</th></tr>`)
		for _, inv := range p.Invoices {
			number := inv.Number
			if number == "" {
				number = inv.StripeID
			}
			h.rawf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				inv.CreatedAt.Format("Jan 2, 2006"), number, inv.DisplayAmount(), string(inv.Status))
		}
		h.raw(`</table>`)
	})
}

func (DefaultViews) ErrorPage(p handler.ErrorPageParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{}
		h.rawf(`<!doctype html><html><body><h1>%d</h1><p id="error">%s</p>`, p.StatusCode, p.Error)
		if p.RequestID != "" {
			h.rawf(`<p><small>Request %s</small></p>`, p.RequestID)
		}
		h.raw(`</body></html>`)
		_, err := io.WriteString(w, h.b.String())
		return err
	})
}

func (DefaultViews) ErrorToast(p handler.ErrorToastParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{}
		h.rawf(`<div class="toast toast-%s">%s</div>`, p.Type, p.Message)
		_, err := io.WriteString(w, h.b.String())
		return err
	})
}
