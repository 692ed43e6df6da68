package events

import (
	"encoding/json"
	"sync"
)

// EventHub fans events out to subscribers and remembers the latest event of
// each name, so late subscribers can be primed with the current readout.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	latest map[string]Event
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subs:   make(map[chan Event]struct{}),
		latest: make(map[string]Event),
	}
}

func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Latest returns the most recent event published under name.
func (h *EventHub) Latest(name string) (Event, bool) {
	if h == nil {
		return Event{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	ev, ok := h.latest[name]
	return ev, ok
}

func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := Event{Name: name, Data: b}
	h.mu.Lock()
	h.latest[name] = msg
	for ch := range h.subs {
		// Non-blocking send; drop if subscriber is slow
		select {
		case ch <- msg:
		default:
		}
	}
	h.mu.Unlock()
}
