package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"
)

// Context wraps the request and response writer and delegates context.Context
// to the request context.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	SSE() *datastar.ServerSentEventGenerator
}

// NewContext creates a Context. SSE is initialised only for DataStar requests.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	ctx := &httpContext{w: w, r: r}
	if IsDataStar(r) {
		ctx.sse = datastar.NewSSE(w, r)
	}
	return ctx
}

type httpContext struct {
	w   http.ResponseWriter
	r   *http.Request
	sse *datastar.ServerSentEventGenerator
}

func (c *httpContext) Request() *http.Request                  { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter     { return c.w }
func (c *httpContext) SSE() *datastar.ServerSentEventGenerator { return c.sse }

func (c *httpContext) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *httpContext) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *httpContext) Err() error                  { return c.r.Context().Err() }
func (c *httpContext) Value(key any) any           { return c.r.Context().Value(key) }

// ContextKey is a typed context key.
type ContextKey struct{ name string }

func (c *ContextKey) String() string {
	return c.name
}

// NewContextKey creates a context key. The name is only used for debugging.
//
//	var customerKey = handler.NewContextKey("billing.customer")
func NewContextKey(name string) *ContextKey {
	return &ContextKey{name}
}

// WithValue returns a copy of the request inside ctx carrying key=val, and a
// Context bound to it. Decorators use it to pass resolved values downstream.
func WithValue(ctx Context, key, val any) Context {
	r := ctx.Request()
	r = r.WithContext(context.WithValue(r.Context(), key, val))
	return &httpContext{w: ctx.ResponseWriter(), r: r, sse: ctx.SSE()}
}

// ContextValue returns the value for key as T, or the zero value.
func ContextValue[T any](ctx context.Context, key any) T {
	val, _ := ctx.Value(key).(T)
	return val
}

// ContextValueOK is ContextValue with a presence flag.
func ContextValueOK[T any](ctx context.Context, key any) (T, bool) {
	val, ok := ctx.Value(key).(T)
	return val, ok
}
