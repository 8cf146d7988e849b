package billing

import (
	"errors"
	"time"
)

// WebhookValidation selects how an inbound delivery is authenticated.
type WebhookValidation string

const (
	// ValidateSignature checks the Stripe-Signature HMAC against the endpoint secret.
	ValidateSignature WebhookValidation = "verify_signature"
	// ValidateRetrieveEvent fetches the event from Stripe and compares its data.
	ValidateRetrieveEvent WebhookValidation = "retrieve_event"
	// ValidateNone trusts the payload. Only for local development.
	ValidateNone WebhookValidation = "none"
)

// Config holds the Stripe settings, read from STRIPE_* variables.
type Config struct {
	LiveMode       bool   `env:"STRIPE_LIVE_MODE" envDefault:"false"`
	SecretKey      string `env:"STRIPE_SECRET_KEY,required"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`

	WebhookSecret     string            `env:"STRIPE_WEBHOOK_SECRET"`
	WebhookValidation WebhookValidation `env:"STRIPE_WEBHOOK_VALIDATION" envDefault:"verify_signature"`
	WebhookTolerance  time.Duration     `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`

	// CancelAtPeriodEnd makes Cancel pro-rated: the subscription runs until
	// the end of the paid period.
	CancelAtPeriodEnd bool `env:"STRIPE_CANCEL_AT_PERIOD_END" envDefault:"true"`
	ChargeImmediately bool `env:"STRIPE_CHARGE_IMMEDIATELY" envDefault:"true"`
	SendReceipts      bool `env:"STRIPE_SEND_RECEIPTS" envDefault:"false"`

	APITimeout time.Duration `env:"STRIPE_API_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns the documented defaults for test-mode keys.
func DefaultConfig(secretKey string) Config {
	return Config{
		SecretKey:         secretKey,
		WebhookValidation: ValidateSignature,
		WebhookTolerance:  5 * time.Minute,
		CancelAtPeriodEnd: true,
		ChargeImmediately: true,
		APITimeout:        30 * time.Second,
	}
}

// Validate is called by config.Load after parsing.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	switch c.WebhookValidation {
	case ValidateSignature:
		if c.WebhookSecret == "" {
			return ErrMissingWebhookSecret
		}
	case ValidateRetrieveEvent, ValidateNone:
	default:
		return errors.Join(ErrInvalidValidation, errors.New(string(c.WebhookValidation)))
	}
	return nil
}
