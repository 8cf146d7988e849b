package billing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/stripekit/handler"
)

// PageRequest carries the query parameters every page accepts.
type PageRequest struct {
	Next string `query:"next"`
}

// ConfirmRequest is the confirm page: plan_id from the path and, on POST,
// the plan form.
type ConfirmRequest struct {
	PlanID      string `path:"plan_id"`
	Plan        string `form:"plan" validate:"required,max=255"`
	Quantity    int64  `form:"quantity" validate:"omitempty,min=1,max=10000"`
	StripeToken string `form:"stripe_token" validate:"omitempty,max=255"`
}

// CancelRequest is the empty cancel confirmation form plus its next target.
type CancelRequest struct {
	Next string `query:"next"`
}

// ChangeCardRequest is the change-card form.
type ChangeCardRequest struct {
	StripeToken string `form:"stripe_token" validate:"required,max=255"`
}

var fieldMessages = map[string]string{
	"required": "This field is required.",
	"min":      "Ensure this value is at least %s.",
	"max":      "Ensure this value is at most %s.",
}

// newValidator reports fields by their form names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateForm runs struct validation and converts failures into a
// handler.ValidationError keyed by form field name.
func validateForm(v *validator.Validate, form any) handler.ValidationError {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	out := handler.NewValidationError()
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("__all__", err.Error())
		return out
	}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "Enter a valid value."
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out.Add(fe.Field(), msg)
	}
	return out
}
