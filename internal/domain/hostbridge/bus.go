package hostbridge

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusClosed is returned after the owning page is torn down
var ErrBusClosed = errors.New("message bus closed")

// Envelope is one cross-document message as delivered by the host
type Envelope struct {
	Origin string `json:"origin"`
	Data   any    `json:"data"`
}

// Handler receives envelopes from the bus
type Handler func(env Envelope)

// Subscription is returned by Subscribe
type Subscription interface {
	// Unsubscribe stops delivery to the handler
	Unsubscribe()
}

// Bus is a page-scoped message channel. Publish delivers synchronously to
// every subscriber in subscription order; concurrent publishers are serialized
// so all subscribers observe the same delivery order.
type Bus struct {
	mu       sync.RWMutex
	subs     []*busSubscription
	delivery sync.Mutex
	closed   atomic.Bool
	counter  atomic.Uint64
}

type busSubscription struct {
	id      uint64
	handler Handler
	bus     *Bus
	active  atomic.Bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler until the returned subscription is cancelled
func (b *Bus) Subscribe(handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	sub := &busSubscription{id: b.counter.Add(1), handler: handler, bus: b}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Publish delivers env to all current subscribers
func (b *Bus) Publish(env Envelope) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.delivery.Lock()
	defer b.delivery.Unlock()

	b.mu.RLock()
	subs := make([]*busSubscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.handler(env)
		}
	}
	return nil
}

// Len returns the number of live subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscription
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	for _, sub := range b.subs {
		sub.active.Store(false)
	}
	b.subs = nil
	b.mu.Unlock()
}

func (s *busSubscription) Unsubscribe() {
	if !s.active.Swap(false) {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
