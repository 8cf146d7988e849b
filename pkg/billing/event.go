package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// EventHandlerFunc reacts to one event type or category.
type EventHandlerFunc func(ctx context.Context, e *Event) error

// InFlightGuard serialises concurrent deliveries of the same event.
type InFlightGuard interface {
	// Acquire takes the lock for key. ok is false when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// EventProcessor stores each event once and runs its handlers once.
type EventProcessor struct {
	store    EventStore
	guard    InFlightGuard
	guardTTL time.Duration
	observer Observer
	log      *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[string][]EventHandlerFunc
}

// EventProcessorOption configures an EventProcessor.
type EventProcessorOption func(*EventProcessor)

// WithInFlightGuard adds a lock around handler execution per event id.
func WithInFlightGuard(g InFlightGuard, ttl time.Duration) EventProcessorOption {
	return func(p *EventProcessor) {
		p.guard = g
		if ttl > 0 {
			p.guardTTL = ttl
		}
	}
}

// WithEventObserver reports per-event results.
func WithEventObserver(o Observer) EventProcessorOption {
	return func(p *EventProcessor) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithEventLogger sets the processor logger.
func WithEventLogger(log *slog.Logger) EventProcessorOption {
	return func(p *EventProcessor) {
		if log != nil {
			p.log = log
		}
	}
}

// NewEventProcessor creates a processor without handlers. Panics if store is nil.
func NewEventProcessor(store EventStore, opts ...EventProcessorOption) *EventProcessor {
	if store == nil {
		panic("billing: EventStore is required")
	}
	p := &EventProcessor{
		store:    store,
		guardTTL: 30 * time.Second,
		observer: noopObserver{},
		log:      slog.Default(),
		now:      time.Now,
		handlers: make(map[string][]EventHandlerFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(logger.Component("billing.events"))
	return p
}

// RegisterHandler adds h for an exact type ("invoice.paid") or a category
// prefix ("invoice"). Handlers run in registration order.
func (p *EventProcessor) RegisterHandler(eventType string, h EventHandlerFunc) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[eventType] = append(p.handlers[eventType], h)
}

func (p *EventProcessor) handlersFor(e *Event) []EventHandlerFunc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := append([]EventHandlerFunc(nil), p.handlers[e.Type]...)
	for _, prefix := range e.Category() {
		out = append(out, p.handlers[prefix]...)
	}
	return out
}

// Process records raw and runs its handlers unless the event was already
// processed. A redelivery of a processed event is returned as is.
func (p *EventProcessor) Process(ctx context.Context, raw RawEvent) (*Event, error) {
	existing, err := p.store.GetEvent(ctx, raw.ID)
	switch {
	case err == nil && existing.Processed:
		p.observer.EventProcessed(existing.Type, ResultDuplicate)
		p.log.DebugContext(ctx, "duplicate event", logger.StripeEventID(raw.ID))
		return existing, nil
	case err != nil && !errors.Is(err, ErrEventNotFound):
		return nil, err
	}

	if p.guard != nil {
		release, ok, err := p.guard.Acquire(ctx, "billing:event:"+raw.ID, p.guardTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			if e, err := p.store.GetEvent(ctx, raw.ID); err == nil && e.Processed {
				p.observer.EventProcessed(e.Type, ResultDuplicate)
				return e, nil
			}
			return nil, ErrEventInFlight
		}
		defer release()
	}

	e := existing
	if e == nil {
		e = eventFromRaw(raw, p.now().UTC())
		if err := p.store.CreateEvent(ctx, e); err != nil {
			if !errors.Is(err, ErrEventExists) {
				return nil, err
			}
			winner, gerr := p.store.GetEvent(ctx, raw.ID)
			if gerr != nil {
				return nil, gerr
			}
			p.observer.EventProcessed(winner.Type, ResultDuplicate)
			return winner, nil
		}
	}

	handlers := p.handlersFor(e)
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			p.observer.EventProcessed(e.Type, ResultFailed)
			return e, fmt.Errorf("%s: %w", e.Type, err)
		}
	}

	if err := p.store.MarkEventProcessed(ctx, e.ID); err != nil {
		return e, err
	}
	e.Processed = true

	result := ResultProcessed
	if len(handlers) == 0 {
		result = ResultUnhandled
		p.log.DebugContext(ctx, "no handler for event", logger.EventType(e.Type), logger.StripeEventID(e.ID))
	}
	p.observer.EventProcessed(e.Type, result)
	return e, nil
}

func eventFromRaw(raw RawEvent, now time.Time) *Event {
	e := &Event{
		ID:                 raw.ID,
		Type:               raw.Type,
		APIVersion:         raw.APIVersion,
		Data:               raw.Data.Object,
		PreviousAttributes: raw.Data.PreviousAttributes,
		CreatedAt:          unixTime(raw.Created),
		ReceivedAt:         now,
	}
	if raw.Livemode != nil {
		e.Livemode = *raw.Livemode
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return e
}
