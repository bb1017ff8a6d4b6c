// Package hub provides per-table change subscriptions.
//
// Callbacks are invoked synchronously, in registration order, with the
// full current contents of the table. A panic in one callback never
// prevents the remaining callbacks from running. Every Subscribe call
// is a distinct registration identified by its unsubscribe closure: Go
// function values carry no comparable identity, so registering the
// same callback twice yields two registrations, and callers that want
// at-most-once registration hold on to the unsubscribe handle.
// Unsubscribing is idempotent and safe to call from inside a
// notification callback.
package hub

import (
	"sync"

	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
)

// Callback receives the full current contents of a table after a write.
type Callback func(records []models.Record)

// subscriber pairs a callback with its registration state.
type subscriber struct {
	callback Callback
	active   bool
}

// Hub maintains per-table observer lists and fans out notifications.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]*subscriber
	log  *logging.Logger
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		subs: make(map[string][]*subscriber),
		log:  logging.Get().WithComponent("hub"),
	}
}

// Subscribe registers a callback for a table and returns its unsubscribe
// function. Each call is a new registration, notified in registration
// order.
func (h *Hub) Subscribe(table string, cb Callback) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{callback: cb, active: true}
	h.subs[table] = append(h.subs[table], sub)
	return h.unsubscribeFunc(sub)
}

// unsubscribeFunc builds the idempotent unsubscribe closure for one
// registration. Deactivation only flags the subscriber; compaction
// happens on the next Notify, which keeps unsubscribe safe from inside
// a callback.
func (h *Hub) unsubscribeFunc(sub *subscriber) func() {
	return func() {
		h.mu.Lock()
		sub.active = false
		h.mu.Unlock()
	}
}

// Notify invokes every active callback for the table, in registration
// order, with the given records. Callbacks run outside the hub lock.
func (h *Hub) Notify(table string, records []models.Record) {
	h.mu.Lock()
	subs := h.subs[table]
	active := make([]*subscriber, 0, len(subs))
	kept := subs[:0]
	for _, sub := range subs {
		if sub.active {
			active = append(active, sub)
			kept = append(kept, sub)
		}
	}
	h.subs[table] = kept
	h.mu.Unlock()

	for _, sub := range active {
		h.invoke(table, sub, records)
	}
}

// invoke runs one callback, isolating panics.
func (h *Hub) invoke(table string, sub *subscriber, records []models.Record) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Subscriber callback panicked", nil, map[string]interface{}{
				"table": table,
				"panic": r,
			})
		}
	}()

	h.mu.Lock()
	isActive := sub.active
	h.mu.Unlock()
	if !isActive {
		// Unsubscribed by an earlier callback in this notification.
		return
	}

	sub.callback(records)
}

// Count returns the number of active subscribers for a table.
func (h *Hub) Count(table string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, sub := range h.subs[table] {
		if sub.active {
			n++
		}
	}
	return n
}
