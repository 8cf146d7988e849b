package websession

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/sessions"
)

const minSecretLength = 32

// Flash kinds rendered by the billing views.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// Manager stores small per-browser values and flash messages in an
// encrypted cookie.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// New returns a Manager. Each secret must be at least 32 bytes; the first 32
// bytes double as the AES key.
func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keyPairs := make([][]byte, 0, len(secrets)*2)
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		keyPairs = append(keyPairs, []byte(s), []byte(s[:minSecretLength]))
	}

	o := options{
		name:     "stripekit_session",
		path:     "/",
		maxAge:   7 * 24 * 60 * 60,
		httpOnly: true,
		sameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     o.path,
		Domain:   o.domain,
		MaxAge:   o.maxAge,
		Secure:   o.secure,
		HttpOnly: o.httpOnly,
		SameSite: o.sameSite,
	}
	store.MaxAge(o.maxAge)

	return &Manager{store: store, name: o.name}, nil
}

// session returns the request's session. A cookie that fails to decode,
// for example after every secret rotated out, yields a fresh session.
func (m *Manager) session(r *http.Request) *sessions.Session {
	s, _ := m.store.Get(r, m.name)
	if s == nil {
		s = sessions.NewSession(m.store, m.name)
		s.Options = copyOptions(m.store.Options)
		s.IsNew = true
	}
	return s
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	return nil
}

// Get returns the string stored under key, or "".
func (m *Manager) Get(r *http.Request, key string) string {
	v, _ := m.session(r).Values[key].(string)
	return v
}

// Set stores value under key and writes the cookie.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	s := m.session(r)
	s.Values[key] = value
	s.Options = copyOptions(m.store.Options)
	return m.save(w, r, s)
}

// Clear drops every value and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	clear(s.Values)
	s.Options = copyOptions(m.store.Options)
	s.Options.MaxAge = -1
	return m.save(w, r, s)
}

// AddFlash queues a message for the next page. It survives a Clear earlier
// in the same request.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) error {
	s := m.session(r)
	s.AddFlash(Flash{Kind: kind, Message: message})
	s.Options = copyOptions(m.store.Options)
	return m.save(w, r, s)
}

// Flashes returns and clears queued messages. The cookie is rewritten only
// when there was something to consume.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	s := m.session(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out, m.save(w, r, s)
}

func copyOptions(o *sessions.Options) *sessions.Options {
	if o == nil {
		return &sessions.Options{Path: "/"}
	}
	c := *o
	return &c
}
