// Package stream fans captured entries out to WebSocket clients as they
// arrive, so a viewer can follow a page session live.
package stream

import (
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// Event is one captured entry pushed to live subscribers.
type Event struct {
	Domain  string `json:"domain"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Hub fans out events to all subscribed WebSocket clients.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a new client. Returns the subscriber ID and a channel
// to receive events on. The channel is buffered; slow consumers will have
// events dropped.
func (h *Hub) Subscribe() (int64, <-chan Event) {
	id := h.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish sends an event to all subscribers. Non-blocking: slow clients
// have events dropped.
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
