package handler_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/stripekit/handler"
)

type paymentError struct{ msg string }

func (e paymentError) Error() string   { return e.msg }
func (e paymentError) StatusCode() int { return http.StatusPaymentRequired }

func errorPage(p handler.ErrorPageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "%d|%s", p.StatusCode, p.Error)
		return err
	})
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eh := handler.NewErrorHandler(log, handler.ErrorHandlerConfig{ErrorPage: errorPage})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"http error", handler.ErrNotFound, http.StatusNotFound, "404|not_found"},
		{"wrapped http error", fmt.Errorf("plan: %w", handler.ErrNotFound), http.StatusNotFound, "404|not_found"},
		{"status coder", paymentError{msg: "card declined"}, http.StatusPaymentRequired, "402|card declined"},
		{"validation", handler.ValidationError{"plan": {"required"}}, http.StatusBadRequest, "400|plan: required"},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, "500|An error occurred processing your request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/billing/", nil)
			eh(handler.NewContext(rec, req), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestNewErrorHandlerWithoutPage(t *testing.T) {
	t.Parallel()

	eh := handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{})
	rec := httptest.NewRecorder()
	eh(handler.NewContext(rec, httptest.NewRequest(http.MethodGet, "/", nil)), handler.ErrForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}
