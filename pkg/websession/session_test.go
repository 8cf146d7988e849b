package websession_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/websession"
)

const (
	secret    = "this-is-a-very-long-secret-key-32-chars-long"
	oldSecret = "this-is-old-very-long-secret-key-32-chars-ok"
)

// carry copies cookies set on rec onto a fresh request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secrets []string
		wantErr error
	}{
		{name: "no secrets", secrets: nil, wantErr: websession.ErrNoSecret},
		{name: "empty secrets", secrets: []string{"", ""}, wantErr: websession.ErrNoSecret},
		{name: "secret too short", secrets: []string{"short"}, wantErr: websession.ErrSecretTooShort},
		{name: "valid secret", secrets: []string{secret}},
		{name: "rotation", secrets: []string{secret, oldSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := websession.New(tt.secrets)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	mgr, err := websession.NewFromConfig(websession.Config{
		Secrets:  " " + secret + " , ",
		Name:     "billing",
		Path:     "/billing",
		MaxAge:   60,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), "k", "v"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "billing", c.Name)
	assert.Equal(t, "/billing", c.Path)
	assert.Equal(t, 60, c.MaxAge)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	_, err = websession.NewFromConfig(websession.Config{})
	assert.ErrorIs(t, err, websession.ErrNoSecret)
}

func TestValues(t *testing.T) {
	t.Parallel()

	mgr, err := websession.New([]string{secret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), "subscriber_id", "user-1"))

	req := carry(rec)
	assert.Equal(t, "user-1", mgr.Get(req, "subscriber_id"))
	assert.Empty(t, mgr.Get(req, "missing"))

	rec = httptest.NewRecorder()
	require.NoError(t, mgr.Clear(rec, req))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestFlashes(t *testing.T) {
	t.Parallel()

	mgr, err := websession.New([]string{secret})
	require.NoError(t, err)

	t.Run("consumed once", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cancel", nil)
		require.NoError(t, mgr.AddFlash(rec, req, websession.FlashSuccess, "Canceled."))
		require.NoError(t, mgr.AddFlash(rec, req, websession.FlashInfo, "See you soon."))

		next := carry(rec)
		rec = httptest.NewRecorder()
		flashes, err := mgr.Flashes(rec, next)
		require.NoError(t, err)
		assert.Equal(t, []websession.Flash{
			{Kind: websession.FlashSuccess, Message: "Canceled."},
			{Kind: websession.FlashInfo, Message: "See you soon."},
		}, flashes)

		again, err := mgr.Flashes(httptest.NewRecorder(), carry(rec))
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("survives clear in the same request", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cancel", nil)
		require.NoError(t, mgr.Set(rec, req, "subscriber_id", "user-1"))
		require.NoError(t, mgr.Clear(rec, req))
		require.NoError(t, mgr.AddFlash(rec, req, websession.FlashInfo, "Bye."))

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		last := cookies[len(cookies)-1]
		assert.Positive(t, last.MaxAge)

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(last)
		assert.Empty(t, mgr.Get(next, "subscriber_id"))
		flashes, err := mgr.Flashes(httptest.NewRecorder(), next)
		require.NoError(t, err)
		assert.Equal(t, []websession.Flash{{Kind: websession.FlashInfo, Message: "Bye."}}, flashes)
	})

	t.Run("no cookie written without flashes", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		flashes, err := mgr.Flashes(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Empty(t, flashes)
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestSecretRotation(t *testing.T) {
	t.Parallel()

	old, err := websession.New([]string{oldSecret})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, old.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), "subscriber_id", "user-1"))

	rotated, err := websession.New([]string{secret, oldSecret})
	require.NoError(t, err)
	assert.Equal(t, "user-1", rotated.Get(carry(rec), "subscriber_id"))

	fresh, err := websession.New([]string{secret})
	require.NoError(t, err)
	assert.Empty(t, fresh.Get(carry(rec), "subscriber_id"))
}
