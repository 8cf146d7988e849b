package ratelimit

import "time"

// Config is read from RATELIMIT_* variables.
type Config struct {
	// Requests is how many form submissions one client may make per Window.
	// Zero disables limiting.
	Requests int           `env:"RATELIMIT_REQUESTS" envDefault:"30"`
	Window   time.Duration `env:"RATELIMIT_WINDOW" envDefault:"1m"`
}

// Enabled reports whether limiting is configured.
func (c Config) Enabled() bool {
	return c.Requests > 0 && c.Window > 0
}
