package billing

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// SignatureHeader carries Stripe's HMAC signature.
	SignatureHeader = "Stripe-Signature"

	// TestEventSuffix ends the id of events sent from the dashboard's
	// "send test webhook" button.
	TestEventSuffix = "_00000000000000"

	maxExceptionLength = 255
)

// WebhookEventTrigger is the audit record of one inbound delivery. It is
// written on receipt, updated once with the outcome, and never deleted.
type WebhookEventTrigger struct {
	ID        uuid.UUID
	RemoteIP  string
	Headers   map[string]string
	Body      string
	Valid     bool
	Processed bool
	Exception string
	Traceback string
	TestEvent bool
	EventID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasException reports whether processing raised.
func (t *WebhookEventTrigger) HasException() bool {
	return t.Exception != ""
}

// Header returns the header value for name, matched case-insensitively.
func (t *WebhookEventTrigger) Header(name string) string {
	if v, ok := t.Headers[name]; ok {
		return v
	}
	for k, v := range t.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (t *WebhookEventTrigger) setException(err error, traceback string) {
	msg := err.Error()
	if utf8.RuneCountInString(msg) > maxExceptionLength {
		msg = string([]rune(msg)[:maxExceptionLength])
	}
	t.Exception = msg
	t.Traceback = traceback
}

// TriggerRequest is the raw delivery handed over by the HTTP layer.
type TriggerRequest struct {
	Headers  map[string]string
	Body     []byte
	RemoteIP string
}

// RawEvent is the envelope of a Stripe event payload.
type RawEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Livemode   *bool  `json:"livemode"`
	APIVersion string `json:"api_version"`
	Created    int64  `json:"created"`
	Data       struct {
		Object             json.RawMessage `json:"object"`
		PreviousAttributes json.RawMessage `json:"previous_attributes,omitempty"`
	} `json:"data"`
}

// IsTest reports a dashboard test event.
func (e RawEvent) IsTest() bool {
	return strings.HasSuffix(e.ID, TestEventSuffix)
}

// Event is a deduplicated provider event. The provider id is unique, so a
// redelivered event never runs its handlers twice.
type Event struct {
	ID                 string
	Type               string
	Livemode           bool
	APIVersion         string
	Data               json.RawMessage
	PreviousAttributes json.RawMessage
	Processed          bool
	CreatedAt          time.Time
	ReceivedAt         time.Time
}

// Category returns the dotted prefixes of the event type, longest first:
// "customer.subscription.updated" gives ["customer.subscription", "customer"].
func (e *Event) Category() []string {
	parts := strings.Split(e.Type, ".")
	prefixes := make([]string, 0, len(parts)-1)
	for i := len(parts) - 1; i > 0; i-- {
		prefixes = append(prefixes, strings.Join(parts[:i], "."))
	}
	return prefixes
}
