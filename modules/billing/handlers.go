package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/websession"
)

const (
	msgAlreadySubscribed  = "You already subscribed to this plan"
	msgSubscribed         = "You are now subscribed!"
	msgCancelled          = "Your subscription is now cancelled."
	msgStatusUntil        = "Your subscription status is now '%s' until '%s'"
	msgStripeError        = "Stripe Error"
	msgCardUpdated        = "Your card is now updated."
	msgInvalidPlanChoice  = "Select a valid choice. That choice is not one of the available choices."
	periodEndLayout       = "2006-01-02 15:04:05 MST"
	stripeErrorField      = "__all__"
	unknownProviderReason = "The payment provider rejected the request."
)

func (m *Module) flash(ctx handler.Context, kind, message string) {
	if err := m.flashes.AddFlash(ctx.ResponseWriter(), ctx.Request(), kind, message); err != nil {
		m.log.WarnContext(ctx, "failed to store flash message", logger.Error(err))
	}
}

// currentSubscription hides the no-subscription case.
func (m *Module) currentSubscription(ctx handler.Context, c *billing.Customer) (*billing.Subscription, error) {
	sub, err := m.svc.CurrentSubscription(ctx, c)
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, nil
	}
	return sub, err
}

// pageData consumes pending flashes, so call it only when rendering.
func (m *Module) pageData(ctx handler.Context, c *billing.Customer, sub *billing.Subscription) PageData {
	flashes, err := m.flashes.Flashes(ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		m.log.WarnContext(ctx, "failed to read flash messages", logger.Error(err))
	}
	return PageData{
		BasePath:       m.cfg.BasePath,
		Flashes:        flashes,
		Customer:       c,
		Subscription:   sub,
		PublishableKey: m.svc.Config().PublishableKey,
		Now:            m.svc.Now(),
	}
}

func (m *Module) account(ctx handler.Context, _ PageRequest) handler.Response {
	c := CustomerFromContext(ctx)
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	plans, err := m.svc.Plans(ctx)
	if err != nil {
		return handler.Error(err)
	}
	cards, err := m.svc.Cards(ctx, c)
	if err != nil {
		return handler.Error(err)
	}
	data := m.pageData(ctx, c, sub)
	return handler.Templ(m.views.Account(AccountPage{
		PageData:             data,
		Plans:                plans,
		Cards:                cards,
		HasValidSubscription: sub != nil && sub.IsValid(data.Now),
	}))
}

func (m *Module) subscribe(ctx handler.Context, _ PageRequest) handler.Response {
	c := CustomerFromContext(ctx)
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	plans, err := m.svc.Plans(ctx)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(m.views.Subscribe(SubscribePage{
		PageData: m.pageData(ctx, c, sub),
		Plans:    plans,
	}))
}

func (m *Module) confirm(ctx handler.Context, req ConfirmRequest) handler.Response {
	plan, err := m.svc.Plan(ctx, req.PlanID)
	if err != nil {
		return handler.Error(httpError(err))
	}
	c := CustomerFromContext(ctx)
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	if sub != nil && sub.PlanID == plan.ID && sub.IsValid(m.svc.Now()) {
		m.flash(ctx, websession.FlashInfo, msgAlreadySubscribed)
		return handler.Redirect(m.cfg.path("/subscribe"))
	}
	return handler.Templ(m.views.Confirm(ConfirmPage{
		PageData: m.pageData(ctx, c, sub),
		Plan:     plan,
		Form:     req,
	}))
}

func (m *Module) confirmSubmit(ctx handler.Context, req ConfirmRequest) handler.Response {
	plan, err := m.svc.Plan(ctx, req.PlanID)
	if err != nil {
		return handler.Error(httpError(err))
	}
	c := CustomerFromContext(ctx)

	invalid := func(errs handler.ValidationError) handler.Response {
		sub, _ := m.currentSubscription(ctx, c)
		return handler.TemplWithStatus(http.StatusBadRequest, m.views.Confirm(ConfirmPage{
			PageData: m.pageData(ctx, c, sub),
			Plan:     plan,
			Form:     req,
			Errors:   errs,
		}))
	}

	if errs := validateForm(m.validate, req); errs != nil {
		return invalid(errs)
	}
	target, err := m.svc.Plan(ctx, req.Plan)
	if errors.Is(err, billing.ErrPlanNotFound) {
		errs := handler.NewValidationError()
		errs.Add("plan", msgInvalidPlanChoice)
		return invalid(errs)
	}
	if err != nil {
		return handler.Error(err)
	}

	if req.StripeToken != "" {
		if _, err := m.svc.AddCard(ctx, c, req.StripeToken, true); err != nil {
			if errs, ok := formError(err); ok {
				return invalid(errs)
			}
			return handler.Error(httpError(err))
		}
	}
	if _, err := m.svc.Subscribe(ctx, c, target.ID, billing.SubscribeOptions{Quantity: req.Quantity}); err != nil {
		if errs, ok := formError(err); ok {
			return invalid(errs)
		}
		return handler.Error(httpError(err))
	}

	m.flash(ctx, websession.FlashSuccess, msgSubscribed)
	return handler.Redirect(m.cfg.path("/history"))
}

// formError turns provider and validation failures into form errors.
func formError(err error) (handler.ValidationError, bool) {
	errs := handler.NewValidationError()
	var (
		pe *billing.ProviderError
		ve *billing.ValidationError
	)
	switch {
	case errors.As(err, &pe):
		msg := pe.Message
		if msg == "" {
			msg = unknownProviderReason
		}
		errs.Add(stripeErrorField, msg)
	case errors.Is(err, billing.ErrAlreadySubscribed):
		errs.Add("plan", msgAlreadySubscribed)
	case errors.As(err, &ve):
		field := ve.Field
		if field == "" {
			field = stripeErrorField
		}
		errs.Add(field, ve.Error())
	default:
		return nil, false
	}
	return errs, true
}

func (m *Module) cancel(ctx handler.Context, req CancelRequest) handler.Response {
	c := CustomerFromContext(ctx)
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	return handler.Templ(m.views.Cancel(CancelPage{
		PageData: m.pageData(ctx, c, sub),
		Next:     req.Next,
	}))
}

func (m *Module) cancelSubmit(ctx handler.Context, req CancelRequest) handler.Response {
	c := CustomerFromContext(ctx)
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	if sub == nil {
		// Nothing to cancel, or already canceled: same as an immediate cancel.
		return m.cancelled(ctx, req.Next)
	}

	out, err := m.svc.Cancel(ctx, sub)
	if err != nil {
		return handler.Error(httpError(err))
	}
	if out.IsCanceled() {
		return m.cancelled(ctx, req.Next)
	}

	m.flash(ctx, websession.FlashInfo,
		fmt.Sprintf(msgStatusUntil, out.Status, out.PeriodEnd().Format(periodEndLayout)))
	return handler.Redirect(m.cfg.path("/"))
}

// cancelled logs the subscriber out and leaves through a same-origin next
// or the configured default.
func (m *Module) cancelled(ctx handler.Context, next string) handler.Response {
	if m.logout != nil {
		if err := m.logout(ctx.ResponseWriter(), ctx.Request()); err != nil {
			m.log.ErrorContext(ctx, "logout after cancellation failed",
				logger.Error(errors.Join(ErrLogoutFailed, err)))
		}
	}
	m.flash(ctx, websession.FlashInfo, msgCancelled)
	return handler.SafeRedirect(next, m.cfg.CancelRedirectURL)
}

func (m *Module) renderChangeCard(ctx handler.Context, c *billing.Customer, status int, errs handler.ValidationError, stripeErr string) handler.Response {
	cards, err := m.svc.Cards(ctx, c)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	component := m.views.ChangeCard(ChangeCardPage{
		PageData:    m.pageData(ctx, c, sub),
		Cards:       cards,
		Errors:      errs,
		StripeError: stripeErr,
	})
	if status == http.StatusOK {
		return handler.Templ(component)
	}
	return handler.TemplWithStatus(status, component)
}

func (m *Module) changeCard(ctx handler.Context, _ PageRequest) handler.Response {
	return m.renderChangeCard(ctx, CustomerFromContext(ctx), http.StatusOK, nil, "")
}

func (m *Module) changeCardSubmit(ctx handler.Context, req ChangeCardRequest) handler.Response {
	c := CustomerFromContext(ctx)
	if errs := validateForm(m.validate, req); errs != nil {
		return m.renderChangeCard(ctx, c, http.StatusBadRequest, errs, "")
	}

	sendInvoice := !c.HasPaymentMethod()
	err := func() error {
		if _, err := m.svc.AddCard(ctx, c, req.StripeToken, true); err != nil {
			return err
		}
		if sendInvoice {
			if _, err := m.svc.SendInvoice(ctx, c); err != nil {
				return err
			}
		}
		return m.svc.RetryUnpaidInvoices(ctx, c)
	}()
	if err != nil {
		var pe *billing.ProviderError
		if !errors.As(err, &pe) {
			return handler.Error(err)
		}
		m.flash(ctx, websession.FlashError, msgStripeError)
		return m.renderChangeCard(ctx, c, http.StatusOK, nil, pe.Message)
	}

	m.flash(ctx, websession.FlashSuccess, msgCardUpdated)
	return handler.Redirect(m.cfg.path("/"))
}

func (m *Module) history(ctx handler.Context, _ PageRequest) handler.Response {
	c := CustomerFromContext(ctx)
	invoices, err := m.svc.Invoices(ctx, c)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := m.currentSubscription(ctx, c)
	if err != nil {
		return handler.Error(httpError(err))
	}
	return handler.Templ(m.views.History(HistoryPage{
		PageData: m.pageData(ctx, c, sub),
		Invoices: invoices,
	}))
}
