// Package events provides a publish/subscribe notification bus with
// synchronous and deferred-queue delivery modes. The engine publishes
// telemetry events onto it; it never subscribes to its own output.
package events

import "sync"

// Event is a typed notification with an arbitrary payload.
type Event struct {
	Type    string
	Payload interface{}
}

// Listener receives published events.
type Listener func(Event)

// Bus fans events out to listeners. Publish dispatches immediately on the
// caller's goroutine; PublishAsync enqueues for a later ProcessQueue call,
// which is the one place genuine cross-thread access is anticipated: the
// queue lock is held only long enough to push or swap, so producers are
// never blocked by slow subscribers.
//
// Listener panics are not isolated: a panicking listener aborts delivery to
// the remaining listeners of that dispatch.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]Listener
	global    []Listener
	queue     []Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe registers a listener for one event type.
func (b *Bus) Subscribe(eventType string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// SubscribeAll registers a listener that receives every published event
// regardless of type, in addition to the type-specific listeners.
func (b *Bus) SubscribeAll(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, listener)
}

// Publish dispatches the event immediately: type-specific listeners first,
// then global listeners, in subscription order. It blocks until every
// listener returns.
func (b *Bus) Publish(event Event) {
	b.dispatch(event)
}

// PublishAsync enqueues the event for the next ProcessQueue call. Safe to
// call from any goroutine.
func (b *Bus) PublishAsync(event Event) {
	b.mu.Lock()
	b.queue = append(b.queue, event)
	b.mu.Unlock()
}

// ProcessQueue drains the deferred queue, dispatching each event in FIFO
// enqueue order. Subscription lists are read at dispatch time, so a
// listener registered between PublishAsync and ProcessQueue does receive
// the queued events.
func (b *Bus) ProcessQueue() {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, event := range pending {
		b.dispatch(event)
	}
}

// ClearListeners removes every listener. Useful in tests.
func (b *Bus) ClearListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[string][]Listener)
	b.global = nil
}

// ListenerCount returns the number of listeners for one event type.
func (b *Bus) ListenerCount(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[eventType])
}

// GlobalListenerCount returns the number of subscribe-all listeners.
func (b *Bus) GlobalListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.global)
}

func (b *Bus) dispatch(event Event) {
	b.mu.Lock()
	typed := make([]Listener, len(b.listeners[event.Type]))
	copy(typed, b.listeners[event.Type])
	global := make([]Listener, len(b.global))
	copy(global, b.global)
	b.mu.Unlock()

	for _, listener := range typed {
		listener(event)
	}
	for _, listener := range global {
		listener(event)
	}
}
