// Package watch provides the observer registry behind realtime
// subscriptions. A listener registers for a topic and receives the full
// refreshed snapshot of that collection on every committed change; there
// is no incremental diff contract.
package watch

import (
	"context"
	"sync"
	"time"
)

// Topics published by the domain services.
const (
	TopicProducts = "products"
	TopicSales    = "sales"
	TopicHutang   = "hutang"
	TopicPayments = "payments"
)

// Event carries one full-snapshot notification for a topic.
type Event struct {
	Topic    string    `json:"topic"`
	Snapshot []byte    `json:"snapshot"`
	At       time.Time `json:"at"`
}

// Listener receives snapshot events for a subscribed topic.
type Listener func(Event)

// Bridge fans events out beyond the local process (e.g. Redis pub/sub).
// Events received from the bridge are delivered locally via Deliver.
type Bridge interface {
	Broadcast(ctx context.Context, ev Event) error
}

// Hub is the in-process subscription registry.
// Subscribe returns a cancel func; invoking it detaches the listener.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]Listener
	nextID int64
	bridge Bridge
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int64]Listener),
	}
}

// Attach connects an out-of-process bridge. Safe to call once at startup.
func (h *Hub) Attach(bridge Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = bridge
}

// Subscribe registers fn for topic and returns an unsubscribe handle.
func (h *Hub) Subscribe(topic string, fn Listener) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	subID := h.nextID

	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int64]Listener)
	}
	h.subs[topic][subID] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[topic], subID)
	}
}

// Publish delivers a snapshot to local listeners and broadcasts it through
// the attached bridge, if any. Called by domain services after commit.
func (h *Hub) Publish(ctx context.Context, topic string, snapshot []byte) {
	ev := Event{Topic: topic, Snapshot: snapshot, At: time.Now().UTC()}

	h.Deliver(ev)

	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()
	if bridge != nil {
		// Broadcast failures must not fail the business operation.
		_ = bridge.Broadcast(ctx, ev)
	}
}

// Deliver invokes local listeners only. Bridges call this for events
// received from other processes, which avoids re-broadcast loops.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.subs[ev.Topic]))
	for _, fn := range h.subs[ev.Topic] {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// SubscriberCount reports active listeners for a topic (used by tests and
// the health endpoint).
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
