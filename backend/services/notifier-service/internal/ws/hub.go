package ws

import (
	"context"
	"encoding/json"
	"sync"

	"avacharge/backend/services/notifier-service/internal/models"
)

// Hub tracks alert subscribers and fans delivered messages out to them.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*Subscriber)}
}

// Add registers subscriber.
func (h *Hub) Add(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[s.id] = s
}

// Remove drops subscriber.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Observe broadcasts msg as JSON to every interested subscriber.
func (h *Hub) Observe(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subscribers {
		if s.Wants(msg.StationID) {
			s.Send(payload)
		}
	}
	return nil
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.RUnlock()
	for _, s := range subs {
		s.Close()
	}
}
