package api

import (
	"sync"

	"github.com/lolostheman/bettermc/internal/event"
)

// Hub fans classified events out to live websocket subscribers. The
// pipeline publishes without blocking: a subscriber that cannot keep
// up misses events rather than stalling the game loop.
type Hub struct {
	mu        sync.Mutex
	listeners map[chan event.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[chan event.Event]struct{})}
}

func (h *Hub) Publish(ev event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Drop if listener is slow
		}
	}
}

func (h *Hub) Subscribe() chan event.Event {
	ch := make(chan event.Event, 16)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
}
