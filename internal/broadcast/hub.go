// internal/broadcast/hub.go
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/coordinator"
)

// subscriberBuffer bounds each subscriber's pending events. A client that
// falls this far behind loses events, which is tolerable: every event means
// "refetch the room", so the next delivered event reconciles the view.
const subscriberBuffer = 32

// Hub fans coordinator events out to all subscribers of a room. Events for
// one room are delivered to every subscriber in publish order; no ordering
// holds across rooms. Publish never blocks, so it is safe to call from inside
// the room's mutation critical section.
type Hub struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID][]*Subscriber
	logger *logrus.Logger
}

// Subscriber is one client's live subscription to one room. Close it on every
// exit path from the room view; after Close returns no further events are
// delivered.
type Subscriber struct {
	RoomID uuid.UUID
	UserID uuid.UUID

	hub  *Hub
	ch   chan coordinator.Event
	once sync.Once
}

// NewHub initializes an empty Hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID][]*Subscriber),
		logger: logger,
	}
}

// Subscribe registers userID as an observer of roomID. The same user may hold
// several subscriptions (multiple tabs); each gets its own event stream.
func (h *Hub) Subscribe(roomID, userID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		RoomID: roomID,
		UserID: userID,
		hub:    h,
		ch:     make(chan coordinator.Event, subscriberBuffer),
	}
	h.mu.Lock()
	h.rooms[roomID] = append(h.rooms[roomID], sub)
	h.mu.Unlock()
	return sub
}

// Events is the subscriber's ordered event stream. The channel closes when
// the subscription is closed.
func (s *Subscriber) Events() <-chan coordinator.Event { return s.ch }

// Close removes the subscription and closes the event channel. Idempotent.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		subs := h.rooms[s.RoomID]
		for i, other := range subs {
			if other == s {
				h.rooms[s.RoomID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(h.rooms[s.RoomID]) == 0 {
			delete(h.rooms, s.RoomID)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Publish delivers ev to every subscriber of roomID, in subscription order.
// Subscribers of other rooms see nothing.
func (h *Hub) Publish(roomID uuid.UUID, ev coordinator.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.rooms[roomID] {
		h.send(sub, ev)
	}
}

// PublishTo delivers ev only to roomID subscriptions held by userID. Used for
// the direct kicked_from_room notice.
func (h *Hub) PublishTo(roomID, userID uuid.UUID, ev coordinator.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.rooms[roomID] {
		if sub.UserID == userID {
			h.send(sub, ev)
		}
	}
}

// send is non-blocking: a full buffer drops the event rather than stalling
// the publisher, which holds the room's mutation lock.
func (h *Hub) send(sub *Subscriber, ev coordinator.Event) {
	select {
	case sub.ch <- ev:
	default:
		h.logger.WithFields(logrus.Fields{
			"room": sub.RoomID, "user": sub.UserID, "event": ev.Type,
		}).Warn("subscriber buffer full, dropped event")
	}
}

// Subscribers reports how many clients currently observe roomID.
func (h *Hub) Subscribers(roomID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}
