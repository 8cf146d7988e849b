package billing

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCustomerNotFound      = errors.New("billing customer not found")
	ErrCustomerExists        = errors.New("billing customer already exists")
	ErrCustomerNotSaved      = errors.New("billing customer could not be saved")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrMultipleSubscriptions = errors.New("customer has more than one subscription")
	ErrAlreadySubscribed     = errors.New("customer is already subscribed to this plan")
	ErrPlanNotFound          = errors.New("plan not found")
	ErrInvalidPlan           = errors.New("invalid plan definition")
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrCardNotFound          = errors.New("card not found")
	ErrMissingToken          = errors.New("card token is required")
	ErrNoPaymentMethod       = errors.New("customer has no payment method")
	ErrMissingSubscriber     = errors.New("subscriber is required")

	ErrTriggerNotFound = errors.New("webhook trigger not found")
	ErrTriggerNotSaved = errors.New("webhook trigger could not be saved")
	ErrEventNotFound   = errors.New("event not found")
	ErrEventExists     = errors.New("event already exists")
	ErrEventInFlight   = errors.New("event is being processed by another delivery")
	ErrKeyNotFound     = errors.New("idempotency key not found")

	ErrMissingSecretKey     = errors.New("stripe secret key is required")
	ErrMissingWebhookSecret = errors.New("webhook secret is required for signature verification")
	ErrInvalidValidation    = errors.New("unknown webhook validation mode")

	// Kind sentinels matched by the typed errors below.
	ErrProvider            = errors.New("payment provider error")
	ErrValidation          = errors.New("validation error")
	ErrWebhookVerification = errors.New("webhook verification failed")
	ErrWebhookProcessing   = errors.New("webhook processing failed")
)

// ProviderError is a failed call to the payment provider. Message is safe to
// show to the end user.
type ProviderError struct {
	Op         string
	Code       string
	Type       string
	Message    string
	StatusCode int
	RequestID  string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %s: %s (%s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("stripe %s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// IsInvalidRequest reports whether the provider rejected the request itself,
// as opposed to a card or API failure.
func (e *ProviderError) IsInvalidRequest() bool {
	return e.Type == "invalid_request_error"
}

// ValidationError rejects caller input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StatusCode maps validation failures to 400.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// WebhookVerificationError marks a delivery whose origin could not be proven.
type WebhookVerificationError struct {
	Reason string
	Err    error
}

func (e *WebhookVerificationError) Error() string {
	return "webhook verification failed: " + e.Reason
}

func (e *WebhookVerificationError) Unwrap() error { return e.Err }

func (e *WebhookVerificationError) Is(target error) bool { return target == ErrWebhookVerification }

func (e *WebhookVerificationError) StatusCode() int { return http.StatusBadRequest }

// WebhookProcessingException wraps a failure raised while validating or
// processing a verified delivery. Stripe retries deliveries answered with 5xx.
type WebhookProcessingException struct {
	EventID string
	Err     error
}

func (e *WebhookProcessingException) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("webhook processing failed: %v", e.Err)
	}
	return fmt.Sprintf("webhook processing failed for %s: %v", e.EventID, e.Err)
}

func (e *WebhookProcessingException) Unwrap() error { return e.Err }

func (e *WebhookProcessingException) Is(target error) bool { return target == ErrWebhookProcessing }

func (e *WebhookProcessingException) StatusCode() int { return http.StatusInternalServerError }
