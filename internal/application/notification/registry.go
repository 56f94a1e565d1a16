package notification

import (
	"sync"

	"github.com/shoozy-shop/storefront/internal/domain/notification"
	"github.com/shoozy-shop/storefront/internal/shared/goroutine"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

// Listener receives decoded events.
type Listener func(notification.Event)

// ListenerID identifies one registration. Registering the same func twice
// yields two IDs.
type ListenerID uint64

type entry struct {
	id ListenerID
	fn Listener
}

// registry is an ordered listener list for one category.
type registry struct {
	category notification.Category
	logger   logger.Interface

	mu      sync.RWMutex
	nextID  ListenerID
	entries []entry
}

func newRegistry(category notification.Category, log logger.Interface) *registry {
	return &registry{category: category, logger: log}
}

func (r *registry) add(fn Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, entry{id: r.nextID, fn: fn})
	return r.nextID
}

// remove is a no-op for unknown ids.
func (r *registry) remove(id ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// dispatch calls every listener registered when dispatch began, in
// registration order. A panicking listener does not stop the rest.
func (r *registry) dispatch(ev notification.Event) {
	r.mu.RLock()
	snapshot := make([]entry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	name := r.category.String() + " listener"
	for _, e := range snapshot {
		goroutine.SafeCall(r.logger, name, func() { e.fn(ev) })
	}
}
