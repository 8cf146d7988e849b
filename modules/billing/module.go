package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/binder"
	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/websession"
)

// FlashStore queues one-shot messages across a redirect.
// *websession.Manager implements it.
type FlashStore interface {
	AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) error
	Flashes(w http.ResponseWriter, r *http.Request) ([]websession.Flash, error)
}

type noopFlashes struct{}

func (noopFlashes) AddFlash(http.ResponseWriter, *http.Request, string, string) error { return nil }
func (noopFlashes) Flashes(http.ResponseWriter, *http.Request) ([]websession.Flash, error) {
	return nil, nil
}

// Module serves the billing pages and the Stripe webhook endpoint.
type Module struct {
	cfg      Config
	svc      *billing.Service
	webhooks *billing.WebhookProcessor
	resolver SubscriberResolver
	flashes  FlashStore
	views    Views
	logout   LogoutFunc
	log      *slog.Logger
	validate *validator.Validate

	errorHandler handler.ErrorHandler[handler.Context]
}

// Option configures a Module.
type Option func(*Module)

// WithViews replaces DefaultViews.
func WithViews(v Views) Option {
	return func(m *Module) {
		if v != nil {
			m.views = v
		}
	}
}

// WithFlashStore enables flash messages.
func WithFlashStore(f FlashStore) Option {
	return func(m *Module) {
		if f != nil {
			m.flashes = f
		}
	}
}

// WithLogout sets the function run after an immediate cancellation.
func WithLogout(f LogoutFunc) Option {
	return func(m *Module) {
		m.logout = f
	}
}

// WithLogger sets the logger. Nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// New returns the module. svc, webhooks and resolver are required.
//
//	mod := billingmod.New(cfg, svc, webhooks, resolver,
//		billingmod.WithFlashStore(sessions),
//		billingmod.WithLogout(logout),
//	)
//	r.Mount("/billing", mod.Handle())
func New(cfg Config, svc *billing.Service, webhooks *billing.WebhookProcessor, resolver SubscriberResolver, opts ...Option) *Module {
	if svc == nil {
		panic("billing module: Service is required")
	}
	if webhooks == nil {
		panic("billing module: WebhookProcessor is required")
	}
	if resolver == nil {
		panic("billing module: SubscriberResolver is required")
	}

	m := &Module{
		cfg:      cfg.withDefaults(),
		svc:      svc,
		webhooks: webhooks,
		resolver: resolver,
		flashes:  noopFlashes{},
		views:    DefaultViews{},
		log:      slog.Default(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("billing.http"))
	m.errorHandler = handler.NewErrorHandler(m.log, handler.ErrorHandlerConfig{
		ErrorPage:  m.views.ErrorPage,
		ErrorToast: m.views.ErrorToast,
	})
	return m
}

// Handle returns the module router. Mount it at Config.BasePath.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", wrapPage[PageRequest](m, m.account, binder.Query()))
	r.Get("/subscribe", wrapPage[PageRequest](m, m.subscribe, binder.Query()))
	r.Get("/confirm/{plan_id}", wrapPage[ConfirmRequest](m, m.confirm, binder.Path(chi.URLParam)))
	r.Post("/confirm/{plan_id}", wrapPage[ConfirmRequest](m, m.confirmSubmit, binder.Path(chi.URLParam), binder.Form()))
	r.Get("/cancel", wrapPage[CancelRequest](m, m.cancel, binder.Query()))
	r.Post("/cancel", wrapPage[CancelRequest](m, m.cancelSubmit, binder.Query()))
	r.Get("/change-card", wrapPage[PageRequest](m, m.changeCard, binder.Query()))
	r.Post("/change-card", wrapPage[ChangeCardRequest](m, m.changeCardSubmit, binder.Form()))
	r.Get("/history", wrapPage[PageRequest](m, m.history, binder.Query()))

	r.Post("/webhook", handler.Wrap[handler.Context, struct{}](m.webhook,
		handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
	))

	return r
}

// wrapPage binds R and runs h behind RequireSubscriber and WithCustomer.
func wrapPage[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
		handler.WithDecorators(
			RequireSubscriber[R](m.resolver, m.cfg.LoginURL),
			WithCustomer[R](m.svc),
		),
	)
}
