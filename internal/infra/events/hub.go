// Package events fans progression and auth-state events out to per-user
// subscribers, either in-process or across daemons through Redis pub/sub.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/metrics"
	"github.com/zennify/zennify/internal/platform/logger"
)

// outboundBuffer is how many events a slow subscriber may lag before drops.
const outboundBuffer = 16

// Subscriber receives one user's events.
type Subscriber struct {
	ID     uuid.UUID
	UserID string
	C      chan domain.Event
	once   sync.Once
}

// Hub delivers events to the subscribers of the event's user.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	byUser map[string]map[*Subscriber]bool
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:    log.With("component", "EventHub"),
		byUser: make(map[string]map[*Subscriber]bool),
	}
}

// Subscribe registers a subscriber for userID.
func (h *Hub) Subscribe(userID string) *Subscriber {
	s := &Subscriber{
		ID:     uuid.New(),
		UserID: userID,
		C:      make(chan domain.Event, outboundBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.byUser[userID]
	if !ok {
		subs = make(map[*Subscriber]bool)
		h.byUser[userID] = subs
	}
	subs[s] = true
	metrics.EventSubscribers.Inc()
	h.log.Debug("event subscriber added", "subscriber", s.ID.String(), "user_id", userID)
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.once.Do(func() {
		if subs, ok := h.byUser[s.UserID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.byUser, s.UserID)
			}
		}
		close(s.C)
		metrics.EventSubscribers.Dec()
	})
}

// Broadcast delivers ev to every subscriber of ev.UserID without blocking.
func (h *Hub) Broadcast(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.byUser[ev.UserID] {
		select {
		case s.C <- ev:
		default:
			h.log.Warn("dropping event; subscriber buffer full", "subscriber", s.ID.String(), "type", string(ev.Type))
		}
	}
}

// Subscribers returns how many subscribers userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}
