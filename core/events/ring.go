package events

import (
	"sync"

	"yieldvault/core/types"
)

// AttributeCarrier is implemented by events that can render themselves into
// the generic attribute form consumed by RPC clients.
type AttributeCarrier interface {
	Event() *types.Event
}

// Ring is an Emitter that retains the most recent events in attribute form.
// It backs the event-listing RPC surface.
type Ring struct {
	mu   sync.RWMutex
	buf  []*types.Event
	next int
	full bool
}

// NewRing builds a ring retaining up to capacity events.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{buf: make([]*types.Event, capacity)}
}

// Emit implements Emitter. Events without an attribute form are dropped.
func (r *Ring) Emit(evt Event) {
	carrier, ok := evt.(AttributeCarrier)
	if !ok {
		return
	}
	rendered := carrier.Event()
	if rendered == nil {
		return
	}
	r.mu.Lock()
	r.buf[r.next] = rendered
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Recent returns up to limit events, newest first. A non-positive limit
// returns everything retained.
func (r *Ring) Recent(limit int) []*types.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]*types.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
