package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/stripekit/handler"
	billingmod "github.com/dmitrymomot/stripekit/modules/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/binder"
	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/websession"
)

// The bundled server has no user accounts. A visitor signs in with an
// e-mail address, which becomes the subscriber id.
const (
	sessionSubscriberKey = "subscriber_id"
	sessionEmailKey      = "email"
)

func sessionResolver(s *websession.Manager) billingmod.SubscriberResolver {
	return billingmod.SubscriberResolverFunc(func(r *http.Request) (billing.Subscriber, error) {
		id := s.Get(r, sessionSubscriberKey)
		if id == "" {
			return nil, billingmod.ErrNoSubscriber
		}
		return billing.NewSubscriber(id, s.Get(r, sessionEmailKey)), nil
	})
}

func sessionLogout(s *websession.Manager) billingmod.LogoutFunc {
	return s.Clear
}

type loginRequest struct {
	Email string `form:"email" validate:"required,email,max=254"`
	Next  string `query:"next"`
}

type loginPage struct {
	Email string
	Next  string
	Error string
}

func loginView(p loginPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		action := templ.EscapeString("?next=" + url.QueryEscape(p.Next))
		var errRow string
		if p.Error != "" {
			errRow = fmt.Sprintf(`<p class="error">%s</p>`, templ.EscapeString(p.Error))
		}
		_, err := fmt.Fprintf(w, `<!doctype html><html><body><h1>Sign in</h1>%s`+
			`<form id="login-form" method="post" action="%s">`+
			`<input type="email" name="email" value="%s" required>`+
			`<button type="submit">Continue</button></form></body></html>`,
			errRow, action, templ.EscapeString(p.Email))
		return err
	})
}

func mountLogin(r chi.Router, sessions *websession.Manager, cfg billingmod.Config, log *slog.Logger) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	home := cfg.BasePath + "/"
	if cfg.BasePath == "" {
		home = "/"
	}
	log = log.With(logger.Component("login"))

	r.Get(cfg.LoginURL, handler.Wrap(
		func(ctx handler.Context, req loginRequest) handler.Response {
			return handler.Templ(loginView(loginPage{Next: req.Next}))
		},
		handler.WithBinders[handler.Context, loginRequest](binder.Query()),
	))

	r.Post(cfg.LoginURL, handler.Wrap(
		func(ctx handler.Context, req loginRequest) handler.Response {
			req.Email = strings.ToLower(strings.TrimSpace(req.Email))
			if err := validate.Struct(req); err != nil {
				return handler.TemplWithStatus(http.StatusBadRequest, loginView(loginPage{
					Email: req.Email,
					Next:  req.Next,
					Error: "Enter a valid e-mail address.",
				}))
			}
			w, rq := ctx.ResponseWriter(), ctx.Request()
			err := errors.Join(
				sessions.Set(w, rq, sessionSubscriberKey, req.Email),
				sessions.Set(w, rq, sessionEmailKey, req.Email),
			)
			if err != nil {
				log.ErrorContext(ctx, "failed to start session", logger.Error(err))
				return handler.Error(err)
			}
			return handler.SafeRedirect(req.Next, home)
		},
		handler.WithBinders[handler.Context, loginRequest](binder.Query(), binder.Form()),
	))

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Clear(w, r); err != nil {
			log.ErrorContext(r.Context(), "failed to clear session", logger.Error(err))
		}
		http.Redirect(w, r, cfg.LoginURL, http.StatusSeeOther)
	})
}
