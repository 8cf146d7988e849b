package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// WebhookProcessor turns inbound deliveries into triggers and processed events.
type WebhookProcessor struct {
	cfg      Config
	store    TriggerStore
	events   *EventProcessor
	provider Provider
	observer Observer
	log      *slog.Logger
	now      func() time.Time
}

// WebhookOption configures a WebhookProcessor.
type WebhookOption func(*WebhookProcessor)

// WithWebhookObserver reports trigger outcomes.
func WithWebhookObserver(o Observer) WebhookOption {
	return func(w *WebhookProcessor) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithWebhookLogger sets the processor logger.
func WithWebhookLogger(log *slog.Logger) WebhookOption {
	return func(w *WebhookProcessor) {
		if log != nil {
			w.log = log
		}
	}
}

// WithWebhookClock replaces time.Now. Signature timestamps are checked
// against the real clock by stripe-go regardless.
func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(w *WebhookProcessor) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWebhookProcessor creates a processor. provider is only used by the
// retrieve_event validation mode and may be nil otherwise.
func NewWebhookProcessor(cfg Config, store TriggerStore, events *EventProcessor, provider Provider, opts ...WebhookOption) *WebhookProcessor {
	if store == nil {
		panic("billing: TriggerStore is required")
	}
	if events == nil {
		panic("billing: EventProcessor is required")
	}
	w := &WebhookProcessor{
		cfg:      cfg,
		store:    store,
		events:   events,
		provider: provider,
		observer: noopObserver{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(logger.Component("billing.webhook"))
	return w
}

// Ingest persists the delivery, validates it and processes the event when
// valid. The trigger is always returned once persisted. The error is a
// *WebhookProcessingException when validation or processing raised.
func (w *WebhookProcessor) Ingest(ctx context.Context, req TriggerRequest) (trigger *WebhookEventTrigger, err error) {
	started := w.now()
	now := started.UTC()
	trigger = &WebhookEventTrigger{
		ID:        uuid.New(),
		RemoteIP:  req.RemoteIP,
		Headers:   req.Headers,
		Body:      string(req.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.store.CreateTrigger(ctx, trigger); err != nil {
		return nil, errors.Join(ErrTriggerNotSaved, err)
	}

	log := w.log.With(logger.TriggerID(trigger.ID))

	defer func() {
		trigger.UpdatedAt = w.now().UTC()
		if uerr := w.store.UpdateTrigger(ctx, trigger); uerr != nil {
			log.ErrorContext(ctx, "failed to save webhook trigger", logger.Error(uerr))
			if err == nil {
				err = errors.Join(ErrTriggerNotSaved, uerr)
			}
		}
		w.observer.TriggerProcessed(triggerOutcome(trigger), w.now().Sub(started))
	}()

	perr := w.validateAndProcess(ctx, trigger, req, log)
	if perr != nil {
		var pe *WebhookProcessingException
		if !errors.As(perr, &pe) {
			pe = &WebhookProcessingException{EventID: trigger.EventID, Err: perr}
		}
		if trigger.Exception == "" {
			trigger.setException(pe.Err, "")
		}
		log.ErrorContext(ctx, "webhook processing failed",
			logger.StripeEventID(pe.EventID),
			logger.Error(pe.Err),
		)
		return trigger, pe
	}
	return trigger, nil
}

func (w *WebhookProcessor) validateAndProcess(ctx context.Context, t *WebhookEventTrigger, req TriggerRequest, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic: %v", r)
			t.setException(perr, string(debug.Stack()))
			err = &WebhookProcessingException{EventID: t.EventID, Err: perr}
		}
	}()

	var raw RawEvent
	if err := json.Unmarshal(req.Body, &raw); err != nil {
		t.setException(err, "")
		return &WebhookProcessingException{Err: err}
	}
	if raw.ID == "" || raw.Livemode == nil {
		log.WarnContext(ctx, "webhook payload is missing id or livemode")
		return nil
	}
	if raw.IsTest() {
		t.TestEvent = true
		log.InfoContext(ctx, "test webhook received", logger.StripeEventID(raw.ID))
		return nil
	}

	if verr := w.verify(ctx, t, req, raw); verr != nil {
		var ve *WebhookVerificationError
		if errors.As(verr, &ve) {
			log.WarnContext(ctx, "webhook rejected",
				logger.StripeEventID(raw.ID),
				logger.Error(verr),
			)
			return nil
		}
		t.setException(verr, "")
		return &WebhookProcessingException{EventID: raw.ID, Err: verr}
	}
	t.Valid = true

	e, err := w.events.Process(ctx, raw)
	if err != nil {
		t.setException(err, "")
		return &WebhookProcessingException{EventID: raw.ID, Err: err}
	}
	t.EventID = e.ID
	t.Processed = true
	log.InfoContext(ctx, "webhook processed",
		logger.StripeEventID(e.ID),
		logger.EventType(e.Type),
	)
	return nil
}

// verify authenticates the delivery according to the configured mode. A
// *WebhookVerificationError means the delivery is invalid; any other error
// means verification itself failed.
func (w *WebhookProcessor) verify(ctx context.Context, t *WebhookEventTrigger, req TriggerRequest, raw RawEvent) error {
	switch w.cfg.WebhookValidation {
	case ValidateNone:
		return nil

	case ValidateRetrieveEvent:
		if w.provider == nil {
			return errors.New("retrieve_event validation requires a provider")
		}
		remote, err := w.provider.RetrieveEventData(ctx, raw.ID)
		if err != nil {
			var perr *ProviderError
			if errors.As(err, &perr) && perr.IsInvalidRequest() {
				return &WebhookVerificationError{Reason: "event not found at stripe", Err: err}
			}
			return err
		}
		if len(bytes.TrimSpace(remote)) == 0 {
			return &WebhookVerificationError{Reason: "event has no data at stripe"}
		}
		same, err := sameJSON(remote, raw.Data.Object)
		if err != nil {
			return err
		}
		if !same {
			return &WebhookVerificationError{Reason: "payload data does not match stripe"}
		}
		return nil

	default:
		if w.cfg.WebhookSecret == "" {
			return ErrMissingWebhookSecret
		}
		tolerance := w.cfg.WebhookTolerance
		if tolerance <= 0 {
			tolerance = webhook.DefaultTolerance
		}
		_, err := webhook.ConstructEventWithOptions(req.Body, t.Header(SignatureHeader), w.cfg.WebhookSecret, webhook.ConstructEventOptions{
			Tolerance:                tolerance,
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return &WebhookVerificationError{Reason: err.Error(), Err: err}
		}
		return nil
	}
}

func sameJSON(a, b json.RawMessage) (bool, error) {
	if bytes.Equal(a, b) {
		return true, nil
	}
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false, nil
	}
	return reflect.DeepEqual(av, bv), nil
}

func triggerOutcome(t *WebhookEventTrigger) string {
	switch {
	case t.HasException():
		return OutcomeException
	case t.TestEvent:
		return OutcomeTest
	case t.Valid:
		return OutcomeValid
	default:
		return OutcomeInvalid
	}
}
