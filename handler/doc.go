// Package handler provides typed HTTP handlers for server-rendered pages.
//
// A HandlerFunc receives a Context and a request struct filled by binders, and
// returns a Response. Wrap turns it into an http.HandlerFunc:
//
//	r.Post("/cancel", handler.Wrap(m.cancel,
//		handler.WithBinders[handler.Context, CancelRequest](binder.Query(), binder.Form()),
//		handler.WithDecorators(m.requireSubscriber[CancelRequest]()),
//		handler.WithErrorHandler[handler.Context, CancelRequest](m.errorHandler),
//	))
//
// Responses adapt to DataStar requests (Accept: text/event-stream): templ
// components are sent as element patches and redirects as SSE redirects.
//
// Errors returned through Error, bind failures and render failures go to the
// configured ErrorHandler. NewErrorHandler classifies HTTPError, StatusCoder
// and ValidationError values and renders an error page or toast.
package handler
