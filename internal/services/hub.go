package services

import (
	"sync"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/google/uuid"
)

// Event kinds delivered on a notification stream
const (
	EventNotification      = "notification"       // a new notification row was inserted
	EventNotificationsRead = "notifications_read" // the recipient marked everything read
)

// Event is one message on a user's live notification stream
type Event struct {
	Kind         string               `json:"kind"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Subscription is a cancelable handle on one user's event stream. Events
// arrive on C until Cancel is called.
type Subscription struct {
	ID     uuid.UUID
	UserID uint
	C      <-chan Event

	hub  *Hub
	ch   chan Event
	once sync.Once
}

// Cancel detaches the subscription from the hub and closes C. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub routes notification events to the live subscriptions of each user.
// It holds session-scoped state only; the notifications table remains the
// source of truth and the unread-count query is the reconciliation point.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[uuid.UUID]*Subscription
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[uuid.UUID]*Subscription)}
}

// Subscribe registers a new stream for the user
func (h *Hub) Subscribe(userID uint) *Subscription {
	ch := make(chan Event, 16)
	sub := &Subscription{
		ID:     uuid.New(),
		UserID: userID,
		C:      ch,
		hub:    h,
		ch:     ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uuid.UUID]*Subscription)
	}
	h.subs[userID][sub.ID] = sub
	return sub
}

// Publish delivers the event to every live subscription of the user. The
// send never blocks: a subscriber that stopped draining its channel misses
// the event and reconciles from the authoritative count on reconnect.
func (h *Hub) Publish(userID uint, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[userID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userSubs, ok := h.subs[sub.UserID]; ok {
		delete(userSubs, sub.ID)
		if len(userSubs) == 0 {
			delete(h.subs, sub.UserID)
		}
	}
}
