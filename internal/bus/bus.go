// Package bus delivers state-change notifications between the components
// mounted in one browser tab.
package bus

import (
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

// Handler receives a notification.
type Handler func(domain.Notification)

// Subscription is a registered handler. Unsubscribe is safe to call more
// than once.
type Subscription struct {
	bus    *Bus
	signal domain.Signal
	id     uint64
	once   sync.Once
}

// Unsubscribe removes the handler from its bus.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.signal, s.id) })
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe channel. Handlers for a signal run
// in subscription order on the publishing goroutine. Signals are independent.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[domain.Signal][]entry
	onEmpty  func()
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[domain.Signal][]entry)}
}

// Subscribe registers h for signal.
func (b *Bus) Subscribe(signal domain.Signal, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[signal] = append(b.handlers[signal], entry{id: b.nextID, handler: h})
	return &Subscription{bus: b, signal: signal, id: b.nextID}
}

// Publish delivers n to the handlers subscribed to n.Signal and returns how
// many were invoked. Handlers may subscribe or unsubscribe while running.
func (b *Bus) Publish(n domain.Notification) int {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[n.Signal]))
	for _, e := range b.handlers[n.Signal] {
		targets = append(targets, e.handler)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(n)
	}
	return len(targets)
}

// Len returns the number of active subscriptions across all signals.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, hs := range b.handlers {
		n += len(hs)
	}
	return n
}

func (b *Bus) remove(signal domain.Signal, id uint64) {
	b.mu.Lock()
	hs := b.handlers[signal]
	for i, e := range hs {
		if e.id == id {
			next := make([]entry, 0, len(hs)-1)
			next = append(next, hs[:i]...)
			b.handlers[signal] = append(next, hs[i+1:]...)
			break
		}
	}
	if len(b.handlers[signal]) == 0 {
		delete(b.handlers, signal)
	}
	empty := len(b.handlers) == 0
	onEmpty := b.onEmpty
	b.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}
