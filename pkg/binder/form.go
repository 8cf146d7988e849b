package binder

import (
	"fmt"
	"mime"
	"net/http"
)

// DefaultMaxMemory caps the in-memory part of multipart parsing.
const DefaultMaxMemory = 1 << 20

// Form binds application/x-www-form-urlencoded and multipart/form-data bodies
// into fields tagged `form:"name"`. Requests without a body (GET, HEAD) and
// requests without a Content-Type are reported as ErrBinderNotApplicable so
// the same request struct can serve both the GET and POST side of a page.
//
//	type ConfirmRequest struct {
//		PlanID      string `path:"plan_id"`
//		Plan        string `form:"plan"`
//		Quantity    int64  `form:"quantity"`
//		StripeToken string `form:"stripe_token"`
//	}
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			return ErrBinderNotApplicable
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return ErrBinderNotApplicable
		}

		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: malformed content type: %v", ErrInvalidForm, err)
		}

		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindToStruct(v, "form", r.PostForm, ErrInvalidForm)

		case "multipart/form-data":
			if params["boundary"] == "" {
				return fmt.Errorf("%w: missing boundary in content type", ErrInvalidForm)
			}
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			values := map[string][]string{}
			if r.MultipartForm != nil {
				values = r.MultipartForm.Value
			}
			return bindToStruct(v, "form", values, ErrInvalidForm)

		default:
			return fmt.Errorf("%w: got %s, expected a form content type", ErrUnsupportedMediaType, mediaType)
		}
	}
}
