package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/binder"
)

type confirmRequest struct {
	PlanID      string `path:"plan_id"`
	Plan        string `form:"plan"`
	Quantity    int64  `form:"quantity"`
	StripeToken string `form:"stripe_token"`
	Next        string `query:"next"`
	Untagged    string
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("binds urlencoded body", func(t *testing.T) {
		t.Parallel()
		body := url.Values{"plan": {"gold"}, "quantity": {"3"}, "stripe_token": {"tok_visa"}, "untagged": {"x"}}
		req := httptest.NewRequest(http.MethodPost, "/confirm/gold", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var got confirmRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "gold", got.Plan)
		assert.Equal(t, int64(3), got.Quantity)
		assert.Equal(t, "tok_visa", got.StripeToken)
		assert.Empty(t, got.Untagged)
		assert.Empty(t, got.PlanID)
	})

	t.Run("binds multipart body", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("plan", "silver"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		var got confirmRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "silver", got.Plan)
	})

	t.Run("not applicable on GET", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var got confirmRequest
		assert.ErrorIs(t, binder.Form()(req, &got), binder.ErrBinderNotApplicable)
	})

	t.Run("not applicable without content type", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		var got confirmRequest
		assert.ErrorIs(t, binder.Form()(req, &got), binder.ErrBinderNotApplicable)
	})

	t.Run("rejects json", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		var got confirmRequest
		assert.ErrorIs(t, binder.Form()(req, &got), binder.ErrUnsupportedMediaType)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("quantity=many"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var got confirmRequest
		assert.ErrorIs(t, binder.Form()(req, &got), binder.ErrInvalidForm)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plan=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.ErrorIs(t, binder.Form()(req, confirmRequest{}), binder.ErrInvalidForm)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/cancel?next=%2Faccount", nil)
	var got confirmRequest
	require.NoError(t, binder.Query()(req, &got))
	assert.Equal(t, "/account", got.Next)
}

func TestPath(t *testing.T) {
	t.Parallel()

	extractor := func(r *http.Request, name string) string {
		if name == "plan_id" {
			return "gold"
		}
		return ""
	}

	t.Run("binds path params", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/confirm/gold", nil)
		var got confirmRequest
		require.NoError(t, binder.Path(extractor)(req, &got))
		assert.Equal(t, "gold", got.PlanID)
	})

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var got confirmRequest
		assert.ErrorIs(t, binder.Path(nil)(req, &got), binder.ErrInvalidPath)
	})
}
