// Package hooks provides an in-process implementation of [router.Hooks] and a
// Prometheus listener that turns dispatch and validation hooks into metrics.
package hooks

import (
	"sync"
)

// Listener receives the arguments of a notification.
type Listener func(args ...any)

// Filter transforms a queried value.
type Filter func(value any, args ...any) any

// Bus dispatches notifications to listeners and queries through filters, in
// registration order. It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	filters   map[string][]Filter
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: map[string][]Listener{}, filters: map[string][]Filter{}}
}

// Listen registers fn for tag.
func (b *Bus) Listen(tag string, fn Listener) *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[tag] = append(b.listeners[tag], fn)
	return b
}

// Filter registers fn for tag.
func (b *Bus) Filter(tag string, fn Filter) *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters[tag] = append(b.filters[tag], fn)
	return b
}

// Call implements [router.Hooks].
func (b *Bus) Call(tag string, args ...any) {
	b.mu.RLock()
	listeners := b.listeners[tag]
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(args...)
	}
}

// Query implements [router.Hooks].
func (b *Bus) Query(tag string, value any, args ...any) any {
	b.mu.RLock()
	filters := b.filters[tag]
	b.mu.RUnlock()

	for _, fn := range filters {
		value = fn(value, args...)
	}
	return value
}
