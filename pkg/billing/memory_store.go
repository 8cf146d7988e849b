package billing

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type idemKey struct {
	action   string
	livemode bool
}

type subscriberKey struct {
	id       string
	livemode bool
}

// MemoryStore is an in-process Store for tests and local development.
// Values are copied in and out, so callers never share state with it.
type MemoryStore struct {
	mu            sync.RWMutex
	customers     map[uuid.UUID]Customer
	bySubscriber  map[subscriberKey]uuid.UUID
	cards         map[string]Card
	subscriptions map[string]Subscription
	plans         map[string]Plan
	invoices      map[string]Invoice
	keys          map[idemKey]IdempotencyKey
	triggers      map[uuid.UUID]WebhookEventTrigger
	events        map[string]Event
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:     make(map[uuid.UUID]Customer),
		bySubscriber:  make(map[subscriberKey]uuid.UUID),
		cards:         make(map[string]Card),
		subscriptions: make(map[string]Subscription),
		plans:         make(map[string]Plan),
		invoices:      make(map[string]Invoice),
		keys:          make(map[idemKey]IdempotencyKey),
		triggers:      make(map[uuid.UUID]WebhookEventTrigger),
		events:        make(map[string]Event),
	}
}

func (m *MemoryStore) GetCustomerBySubscriber(_ context.Context, subscriberID string, livemode bool) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySubscriber[subscriberKey{subscriberID, livemode}]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	c := m.customers[id]
	return &c, nil
}

func (m *MemoryStore) GetCustomerByStripeID(_ context.Context, stripeID string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.StripeID == stripeID {
			return &c, nil
		}
	}
	return nil, ErrCustomerNotFound
}

func (m *MemoryStore) CreateCustomer(_ context.Context, c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subscriberKey{c.SubscriberID, c.Livemode}
	if _, ok := m.bySubscriber[key]; ok {
		return ErrCustomerExists
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.customers[c.ID] = *c
	m.bySubscriber[key] = c.ID
	return nil
}

func (m *MemoryStore) UpdateCustomer(_ context.Context, c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.ID]; !ok {
		return ErrCustomerNotFound
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *MemoryStore) SaveCard(_ context.Context, card *Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.cards[card.StripeID]; ok {
		card.ID = existing.ID
		card.CreatedAt = existing.CreatedAt
	} else if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	m.cards[card.StripeID] = *card
	return nil
}

func (m *MemoryStore) DeleteCard(_ context.Context, stripeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[stripeID]; !ok {
		return ErrCardNotFound
	}
	delete(m.cards, stripeID)
	return nil
}

func (m *MemoryStore) ListCards(_ context.Context, customerID uuid.UUID) ([]Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Card
	for _, c := range m.cards {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Card) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveSubscription(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.subscriptions[sub.StripeID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.subscriptions[sub.StripeID] = *sub
	return nil
}

func (m *MemoryStore) GetSubscriptionByStripeID(_ context.Context, stripeID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subscriptions[stripeID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (m *MemoryStore) ListSubscriptions(_ context.Context, customerID uuid.UUID) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Subscription
	for _, s := range m.subscriptions {
		if s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SavePlan(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPlan(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListPlans(_ context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Collect(maps.Values(m.plans))
	slices.SortFunc(out, func(a, b Plan) int {
		return cmp.Or(cmp.Compare(a.Amount, b.Amount), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) SaveInvoice(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.invoices[inv.StripeID]; ok {
		inv.ID = existing.ID
	} else if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invoices[inv.StripeID] = *inv
	return nil
}

func (m *MemoryStore) ListInvoices(_ context.Context, customerID uuid.UUID) ([]Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b Invoice) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetOrCreateIdempotencyKey(_ context.Context, action string, livemode bool) (*IdempotencyKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idemKey{action, livemode}
	key, ok := m.keys[k]
	if !ok {
		key = IdempotencyKey{Action: action, Livemode: livemode, Key: uuid.New(), CreatedAt: time.Now().UTC()}
		m.keys[k] = key
	}
	return &key, nil
}

func (m *MemoryStore) DeleteIdempotencyKey(_ context.Context, action string, livemode bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, idemKey{action, livemode})
	return nil
}

func (m *MemoryStore) CreateTrigger(_ context.Context, t *WebhookEventTrigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[t.ID] = cloneTrigger(*t)
	return nil
}

func (m *MemoryStore) UpdateTrigger(_ context.Context, t *WebhookEventTrigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.triggers[t.ID]; !ok {
		return ErrTriggerNotFound
	}
	m.triggers[t.ID] = cloneTrigger(*t)
	return nil
}

func (m *MemoryStore) GetTrigger(_ context.Context, id uuid.UUID) (*WebhookEventTrigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.triggers[id]
	if !ok {
		return nil, ErrTriggerNotFound
	}
	t = cloneTrigger(t)
	return &t, nil
}

// Triggers returns every stored trigger, oldest first.
func (m *MemoryStore) Triggers() []WebhookEventTrigger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WebhookEventTrigger, 0, len(m.triggers))
	for _, t := range m.triggers {
		out = append(out, cloneTrigger(t))
	}
	slices.SortFunc(out, func(a, b WebhookEventTrigger) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (m *MemoryStore) GetEvent(_ context.Context, id string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (m *MemoryStore) CreateEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return ErrEventExists
	}
	m.events[e.ID] = *e
	return nil
}

func (m *MemoryStore) MarkEventProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.Processed = true
	m.events[id] = e
	return nil
}

func cloneTrigger(t WebhookEventTrigger) WebhookEventTrigger {
	t.Headers = maps.Clone(t.Headers)
	return t
}
