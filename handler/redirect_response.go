package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

type redirectResponse struct {
	url  string
	code int
}

// Render redirects via SSE for DataStar requests and via Location otherwise.
func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	if IsDataStar(req) {
		return datastar.NewSSE(w, req).Redirect(r.url)
	}
	http.Redirect(w, req, r.url, r.code)
	return nil
}

// Redirect creates a 303 See Other redirect.
func Redirect(url string) Response {
	return redirectResponse{url: url, code: http.StatusSeeOther}
}

// RedirectWithCode creates a redirect with an explicit 3xx status.
func RedirectWithCode(url string, code int) Response {
	return redirectResponse{url: url, code: code}
}

type safeRedirectResponse struct {
	target   string
	fallback string
	code     int
}

func (r safeRedirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	target := r.fallback
	if IsSafeRedirectURL(r.target, req) {
		target = r.target
	}
	return redirectResponse{url: target, code: r.code}.Render(w, req)
}

// SafeRedirect redirects to target when it points at the request's own host,
// otherwise to fallback. Use it for any client-supplied "next" parameter.
//
//	return handler.SafeRedirect(ctx.Request().URL.Query().Get("next"), "/")
func SafeRedirect(target, fallback string) Response {
	return safeRedirectResponse{target: target, fallback: fallback, code: http.StatusSeeOther}
}

// RedirectBack redirects to a same-host Referer, or to fallback.
func RedirectBack(fallback string) Response {
	return redirectBackResponse{fallback: fallback, code: http.StatusSeeOther}
}

type redirectBackResponse struct {
	fallback string
	code     int
}

func (r redirectBackResponse) Render(w http.ResponseWriter, req *http.Request) error {
	return safeRedirectResponse{
		target:   req.Header.Get("Referer"),
		fallback: r.fallback,
		code:     r.code,
	}.Render(w, req)
}

// IsSafeRedirectURL reports whether target stays on the request's host.
// Relative paths are allowed; scheme-relative URLs, userinfo, backslashes and
// non-http schemes are rejected.
func IsSafeRedirectURL(target string, r *http.Request) bool {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, "\\\x00\r\n\t") {
		return false
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.User != nil {
		return false
	}

	switch parsed.Scheme {
	case "":
		if parsed.Host == "" {
			// "///evil.com" parses as a path but browsers treat it as a host.
			return !strings.HasPrefix(target, "//")
		}
	case "http", "https":
		if parsed.Host == "" {
			return false
		}
	default:
		return false
	}

	return r != nil && strings.EqualFold(parsed.Host, r.Host)
}
