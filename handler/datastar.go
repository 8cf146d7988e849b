package handler

import (
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

// PatchPrepend inserts a fragment as the first child of the target.
const PatchPrepend = datastar.ElementPatchModePrepend

// IsDataStar reports whether r came from a datastar action: an SSE Accept
// header, the datastar signals query parameter or a datastar content type.
// Billing forms submitted that way get fragments and SSE redirects instead
// of full pages.
func IsDataStar(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	if r.URL.Query().Has("datastar") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/x-datastar")
}
