package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/binder"
)

type planRequest struct {
	Plan     string `form:"plan"`
	Quantity int64  `form:"quantity"`
	Next     string `query:"next"`
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds and renders", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(
			func(ctx handler.Context, req planRequest) handler.Response {
				return handler.Text(http.StatusOK, req.Plan+":"+req.Next)
			},
			handler.WithBinders[handler.Context, planRequest](binder.Query(), binder.Form()),
		)

		req := httptest.NewRequest(http.MethodPost, "/?next=/home", strings.NewReader("plan=gold"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gold:/home", rec.Body.String())
	})

	t.Run("skips not applicable binders", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(
			func(ctx handler.Context, req planRequest) handler.Response {
				return handler.Text(http.StatusOK, "next="+req.Next)
			},
			handler.WithBinders[handler.Context, planRequest](binder.Query(), binder.Form()),
		)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/?next=/x", nil))
		assert.Equal(t, "next=/x", rec.Body.String())
	})

	t.Run("bind error goes to error handler as bad request", func(t *testing.T) {
		t.Parallel()
		var got error
		h := handler.Wrap(
			func(ctx handler.Context, req planRequest) handler.Response {
				t.Fatal("handler must not run")
				return nil
			},
			handler.WithBinders[handler.Context, planRequest](binder.Form()),
			handler.WithErrorHandler[handler.Context, planRequest](func(ctx handler.Context, err error) {
				got = err
				ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
			}),
		)

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("quantity=lots"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		h(httptest.NewRecorder(), req)

		require.Error(t, got)
		assert.ErrorIs(t, got, handler.ErrBadRequest)
		assert.ErrorIs(t, got, binder.ErrInvalidForm)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response { return nil })
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("error response uses http error code", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			return handler.Error(handler.ErrNotFound)
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("decorators run outermost first", func(t *testing.T) {
		t.Parallel()
		var order []string
		mk := func(name string) handler.Decorator[handler.Context, struct{}] {
			return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
				return func(ctx handler.Context, req struct{}) handler.Response {
					order = append(order, name)
					return next(ctx, req)
				}
			}
		}
		h := handler.Wrap(
			func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, "handler")
				return handler.Text(http.StatusNoContent, "")
			},
			handler.WithDecorators(mk("first"), mk("second")),
		)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"first", "second", "handler"}, order)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("decorator can pass values through context", func(t *testing.T) {
		t.Parallel()
		key := handler.NewContextKey("customer")
		withCustomer := func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				return next(handler.WithValue(ctx, key, "cus_123"), req)
			}
		}
		h := handler.Wrap(
			func(ctx handler.Context, req struct{}) handler.Response {
				return handler.Text(http.StatusOK, handler.ContextValue[string](ctx, key))
			},
			handler.WithDecorators(withCustomer),
		)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "cus_123", rec.Body.String())
	})
}

func TestText(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := handler.Text(http.StatusOK, "Test webhook successfully received!").
		Render(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Test webhook successfully received!", rec.Body.String())
}

func TestError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := handler.Error(boom).Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, boom)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := handler.NewValidationError()
	assert.True(t, err.IsEmpty())
	assert.Equal(t, "Validation failed", err.Error())

	err.Add("quantity", "must be at least 1")
	err.Add("plan", "unknown plan")
	assert.True(t, err.Has("plan"))
	assert.Equal(t, "unknown plan", err.Get("plan"))
	assert.Equal(t, "validation error: plan: unknown plan, quantity: must be at least 1", err.Error())
}
