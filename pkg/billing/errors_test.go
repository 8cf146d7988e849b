package billing_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	cause := errors.New("card_declined")
	perr := &billing.ProviderError{Op: "add card", Code: "card_declined", Message: "Your card was declined.", Err: cause}
	wrapped := fmt.Errorf("confirm: %w", perr)
	assert.ErrorIs(t, wrapped, billing.ErrProvider)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "stripe add card: Your card was declined. (card_declined)", perr.Error())
	assert.False(t, perr.IsInvalidRequest())

	verr := &billing.ValidationError{Field: "stripe_token", Reason: "required", Err: billing.ErrMissingToken}
	assert.ErrorIs(t, verr, billing.ErrValidation)
	assert.ErrorIs(t, verr, billing.ErrMissingToken)
	assert.Equal(t, "stripe_token: required", verr.Error())
	assert.Equal(t, http.StatusBadRequest, verr.StatusCode())

	werr := &billing.WebhookVerificationError{Reason: "bad signature"}
	assert.ErrorIs(t, werr, billing.ErrWebhookVerification)
	assert.Equal(t, http.StatusBadRequest, werr.StatusCode())

	pexc := &billing.WebhookProcessingException{EventID: "evt_1", Err: cause}
	assert.ErrorIs(t, pexc, billing.ErrWebhookProcessing)
	assert.ErrorIs(t, pexc, cause)
	assert.Equal(t, http.StatusInternalServerError, pexc.StatusCode())
	assert.Contains(t, pexc.Error(), "evt_1")

	assert.NotErrorIs(t, perr, billing.ErrValidation)
}
