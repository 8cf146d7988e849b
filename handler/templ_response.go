package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

// TemplComponent matches templ.Component.
type TemplComponent interface {
	Render(ctx context.Context, w io.Writer) error
}

// TemplOption tunes how a fragment is patched into the page on datastar requests.
type TemplOption = datastar.PatchElementOption

// WithTarget patches into the element matching selector.
func WithTarget(selector string) TemplOption {
	return datastar.WithSelector(selector)
}

// WithPatchMode sets how the fragment is merged into the target.
func WithPatchMode(mode datastar.ElementPatchMode) TemplOption {
	return datastar.WithMode(mode)
}

type templResponse struct {
	status    int
	component TemplComponent
	options   []TemplOption
}

func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return datastar.NewSSE(w, r).PatchElementTempl(t.component, t.options...)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if t.status != http.StatusOK {
		w.WriteHeader(t.status)
	}
	return t.component.Render(r.Context(), w)
}

// Templ renders component as an HTML page, or as an element patch over SSE
// for datastar requests.
//
//	return handler.Templ(views.History(params), handler.WithTarget("#invoices"))
func Templ(component TemplComponent, opts ...TemplOption) Response {
	return templResponse{status: http.StatusOK, component: component, options: opts}
}

// TemplWithStatus is Templ with a non-200 status, e.g. a form re-rendered
// with errors. Datastar requests always get a 200 stream.
func TemplWithStatus(status int, component TemplComponent, opts ...TemplOption) Response {
	return templResponse{status: status, component: component, options: opts}
}
