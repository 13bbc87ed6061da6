package streaming

import (
	"context"
	"sync"
)

const defaultChannelBuffer = 64

type subscriber struct {
	ch     chan StreamEvent
	filter EventFilter
}

// matches reports whether the subscriber wants the event.
func (s *subscriber) matches(e StreamEvent) bool {
	if s.filter.WorkflowID != "" && s.filter.WorkflowID != e.WorkflowID {
		return false
	}
	if len(s.filter.EventTypes) == 0 {
		return true
	}
	for _, t := range s.filter.EventTypes {
		if t == e.EventType {
			return true
		}
	}
	return false
}

// MemoryHub is a channel-based EventHub for a single process. Delivery is
// non-blocking: a subscriber that stops draining loses events rather than
// stalling the engine.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[*subscriber]struct{})}
}

// Publish fans the event out to every matching subscriber.
func (h *MemoryHub) Publish(ctx context.Context, event StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// slow subscriber, drop
		}
	}
	return nil
}

// Subscribe registers a filtered subscription and returns its channel along
// with a cancel function that removes it.
func (h *MemoryHub) Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sub := &subscriber{
		ch:     make(chan StreamEvent, defaultChannelBuffer),
		filter: filter,
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	}

	return sub.ch, cancel, nil
}
