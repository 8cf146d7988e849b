package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/requestid"
)

const genericErrorMessage = "An error occurred processing your request"

// ErrorPageParams is passed to the full-page error view.
type ErrorPageParams struct {
	Error      string
	StatusCode int
	RequestID  string
	RetryURL   string
}

// ErrorToastParams is passed to the toast view used for datastar requests.
type ErrorToastParams struct {
	Message   string
	Type      string // "error" or "warning"
	RequestID string
}

// ErrorHandlerConfig holds the views the error handler renders.
// A nil ErrorPage falls back to plain text. A nil ErrorToast renders nothing.
type ErrorHandlerConfig struct {
	ErrorPage  func(ErrorPageParams) templ.Component
	ErrorToast func(ErrorToastParams) templ.Component

	ToastTarget string                    // default "#toast-container"
	ToastMode   datastar.ElementPatchMode // default PatchPrepend
}

// StatusCoder is implemented by domain errors that know their HTTP status.
// The error message is shown to the user, so it must not leak internals.
type StatusCoder interface {
	error
	StatusCode() int
}

type errorInfo struct {
	status  int
	message string
}

func (i errorInfo) clientError() bool {
	return i.status >= http.StatusBadRequest && i.status < http.StatusInternalServerError
}

// classifyError maps err onto a status and a message safe to show.
// Validation errors take precedence over everything else.
func classifyError(err error) errorInfo {
	var (
		validationErr ValidationError
		httpErr       HTTPError
		coded         StatusCoder
	)
	switch {
	case errors.As(err, &validationErr):
		return errorInfo{status: http.StatusBadRequest, message: formatValidationErrors(validationErr)}
	case errors.As(err, &httpErr):
		return errorInfo{status: httpErr.Code, message: httpErr.Key}
	case errors.As(err, &coded):
		return errorInfo{status: coded.StatusCode(), message: coded.Error()}
	}
	return errorInfo{status: http.StatusInternalServerError, message: genericErrorMessage}
}

func formatValidationErrors(v ValidationError) string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	var parts []string
	for _, field := range fields {
		for _, msg := range v[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	if len(parts) == 0 {
		return "Validation failed"
	}
	return strings.Join(parts, "; ")
}

// NewErrorHandler renders cfg.ErrorPage for regular requests and
// cfg.ErrorToast for datastar requests. Client errors log at warn level and
// everything else at error level.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))
	if cfg.ToastTarget == "" {
		cfg.ToastTarget = "#toast-container"
	}
	if cfg.ToastMode == "" {
		cfg.ToastMode = PatchPrepend
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		w := ctx.ResponseWriter()
		reqID := requestid.FromContext(r.Context())
		info := classifyError(err)

		level := slog.LevelError
		if info.clientError() {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(reqID),
			logger.Error(err),
			slog.Int("status_code", info.status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if IsDataStar(r) {
			if cfg.ErrorToast == nil {
				return
			}
			typ := "error"
			if info.clientError() {
				typ = "warning"
			}
			toast := cfg.ErrorToast(ErrorToastParams{Message: info.message, Type: typ, RequestID: reqID})
			// SSE has already committed a 200; the toast carries the failure.
			resp := Templ(toast, WithTarget(cfg.ToastTarget), WithPatchMode(cfg.ToastMode))
			if rerr := resp.Render(w, r); rerr != nil {
				log.ErrorContext(r.Context(), "render error toast", logger.Error(rerr))
			}
			return
		}

		if cfg.ErrorPage == nil {
			http.Error(w, info.message, info.status)
			return
		}
		w.WriteHeader(info.status)
		page := cfg.ErrorPage(ErrorPageParams{
			Error:      info.message,
			StatusCode: info.status,
			RequestID:  reqID,
			RetryURL:   r.URL.Path,
		})
		if rerr := page.Render(r.Context(), w); rerr != nil {
			log.ErrorContext(r.Context(), "render error page", logger.Error(rerr))
		}
	}
}
