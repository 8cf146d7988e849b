package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/handler"
)

func TestIsSafeRedirectURL(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/billing/cancel", nil)

	tests := []struct {
		target string
		safe   bool
	}{
		{"/account", true},
		{"account/history", true},
		{"/billing/?tab=history", true},
		{"http://shop.example.com/after", true},
		{"https://SHOP.example.com/after", true},
		{"", false},
		{"https://evil.com/phish", false},
		{"//evil.com", false},
		{"///evil.com", false},
		{"/\\evil.com", false},
		{"javascript:alert(1)", false},
		{"https://user@shop.example.com/", false},
		{"https:///nohost", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.safe, handler.IsSafeRedirectURL(tt.target, req))
		})
	}
}

func TestSafeRedirect(t *testing.T) {
	t.Parallel()

	t.Run("honours same origin", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/cancel", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler.SafeRedirect("/goodbye", "/").Render(rec, req))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/goodbye", rec.Header().Get("Location"))
	})

	t.Run("falls back for external domain", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/cancel", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler.SafeRedirect("https://evil.com/", "/home").Render(rec, req))
		assert.Equal(t, "/home", rec.Header().Get("Location"))
	})

	t.Run("datastar redirect", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/cancel", nil)
		req.Header.Set("Accept", "text/event-stream")
		rec := httptest.NewRecorder()
		require.NoError(t, handler.SafeRedirect("/goodbye", "/").Render(rec, req))
		assert.Contains(t, rec.Body.String(), "/goodbye")
	})
}

func TestRedirectBack(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/x", nil)
	req.Header.Set("Referer", "https://evil.com/")
	rec := httptest.NewRecorder()
	require.NoError(t, handler.RedirectBack("/billing/").Render(rec, req))
	assert.Equal(t, "/billing/", rec.Header().Get("Location"))
}
