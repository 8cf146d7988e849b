package billing

import "strings"

// Config holds the presentation settings, read from BILLING_* variables.
type Config struct {
	// BasePath is where the module is mounted. Redirects inside the module
	// are built from it.
	BasePath string `env:"BILLING_BASE_PATH" envDefault:"/billing"`
	// LoginURL receives unauthenticated visitors with a next parameter.
	LoginURL string `env:"BILLING_LOGIN_URL" envDefault:"/login"`
	// CancelRedirectURL is the fallback target after an immediate cancel.
	CancelRedirectURL string `env:"BILLING_CANCEL_REDIRECT_URL" envDefault:"/"`
	// MaxWebhookBytes caps the webhook request body.
	MaxWebhookBytes int64 `env:"BILLING_WEBHOOK_MAX_BYTES" envDefault:"1048576"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:          "/billing",
		LoginURL:          "/login",
		CancelRedirectURL: "/",
		MaxWebhookBytes:   1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BasePath == "" {
		c.BasePath = d.BasePath
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	if c.BasePath == "/" {
		c.BasePath = ""
	}
	if c.LoginURL == "" {
		c.LoginURL = d.LoginURL
	}
	if c.CancelRedirectURL == "" {
		c.CancelRedirectURL = d.CancelRedirectURL
	}
	if c.MaxWebhookBytes <= 0 {
		c.MaxWebhookBytes = d.MaxWebhookBytes
	}
	return c
}

// path joins p onto BasePath.
func (c Config) path(p string) string {
	if p == "" || p == "/" {
		return c.BasePath + "/"
	}
	return c.BasePath + p
}
