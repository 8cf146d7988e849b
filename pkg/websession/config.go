package websession

import (
	"net/http"
	"strings"
)

// Config holds session cookie settings, read from SESSION_* variables.
type Config struct {
	// Secrets is a comma-separated list. The first secret signs and encrypts
	// new cookies; the rest are accepted when reading, for rotation.
	Secrets  string        `env:"SESSION_SECRETS,required"`
	Name     string        `env:"SESSION_NAME" envDefault:"stripekit_session"`
	Path     string        `env:"SESSION_PATH" envDefault:"/"`
	Domain   string        `env:"SESSION_DOMAIN" envDefault:""`
	MaxAge   int           `env:"SESSION_MAX_AGE" envDefault:"604800"`
	Secure   bool          `env:"SESSION_SECURE" envDefault:"false"`
	HttpOnly bool          `env:"SESSION_HTTP_ONLY" envDefault:"true"`
	SameSite http.SameSite `env:"SESSION_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
}

func (c Config) parseSecrets() []string {
	if c.Secrets == "" {
		return nil
	}
	parts := strings.Split(c.Secrets, ",")
	secrets := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// NewFromConfig builds a Manager from cfg. Options override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	configOpts := make([]Option, 0, 7+len(opts))
	if cfg.Name != "" {
		configOpts = append(configOpts, WithName(cfg.Name))
	}
	if cfg.Path != "" {
		configOpts = append(configOpts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}
	if cfg.MaxAge != 0 {
		configOpts = append(configOpts, WithMaxAge(cfg.MaxAge))
	}
	if cfg.SameSite != 0 {
		configOpts = append(configOpts, WithSameSite(cfg.SameSite))
	}
	configOpts = append(configOpts, WithSecure(cfg.Secure), WithHTTPOnly(cfg.HttpOnly))
	configOpts = append(configOpts, opts...)

	return New(cfg.parseSecrets(), configOpts...)
}
