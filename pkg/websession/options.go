package websession

import "net/http"

type options struct {
	name     string
	path     string
	domain   string
	maxAge   int
	secure   bool
	httpOnly bool
	sameSite http.SameSite
}

// Option configures a Manager.
type Option func(*options)

// WithName sets the cookie name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

func WithDomain(domain string) Option {
	return func(o *options) {
		o.domain = domain
	}
}

// WithMaxAge sets the lifetime in seconds. Zero makes it a browser-session cookie.
func WithMaxAge(seconds int) Option {
	return func(o *options) {
		o.maxAge = seconds
	}
}

func WithSecure(secure bool) Option {
	return func(o *options) {
		o.secure = secure
	}
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(o *options) {
		o.httpOnly = httpOnly
	}
}

func WithSameSite(sameSite http.SameSite) Option {
	return func(o *options) {
		o.sameSite = sameSite
	}
}
