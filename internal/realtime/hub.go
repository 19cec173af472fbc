package realtime

import (
	"errors"
	"sync"
	"time"

	"alert-service/internal/logging"
	"alert-service/internal/metrics"
)

// Event types published by this service.
const (
	EventAlertCreated          = "alert_created"
	EventAlertContactsNotified = "alert_contacts_notified"
	EventAlertStatusChanged    = "alert_status_changed"
	EventHealthConcern         = "health_concern"
)

// ErrTooManySessions is returned by Join when the per-user cap is reached.
var ErrTooManySessions = errors.New("too many realtime sessions for user")

// Event is the envelope delivered to subscribers.
type Event struct {
	Type      string      `json:"type"`
	UserID    string      `json:"user_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber is a live session. Send must not block; a returned error
// evicts the subscriber.
type Subscriber interface {
	ID() string
	Send(Event) error
}

// Hub is the subscription registry: userID -> set of live sessions.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[string]Subscriber
	maxPerUser  int
	logger      *logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewHub(maxPerUser int, logger *logging.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subscribers: make(map[string]map[string]Subscriber),
		maxPerUser:  maxPerUser,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// Join subscribes s to events for userID. Joining twice is a no-op.
func (h *Hub) Join(userID string, s Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[string]Subscriber)
		h.subscribers[userID] = subs
	}
	if _, exists := subs[s.ID()]; exists {
		return nil
	}
	if h.maxPerUser > 0 && len(subs) >= h.maxPerUser {
		h.logger.Warnf("Max realtime sessions reached for user %s", userID)
		return ErrTooManySessions
	}
	subs[s.ID()] = s
	h.metrics.SessionsChanged(1)
	h.logger.Debugf("Session %s joined user %s (total: %d)", s.ID(), userID, len(subs))
	return nil
}

// Leave unsubscribes s from userID.
func (h *Hub) Leave(userID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(userID, s.ID())
}

// LeaveAll drops s from every user group. Called on disconnect.
func (h *Hub) LeaveAll(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID := range h.subscribers {
		h.removeLocked(userID, s.ID())
	}
}

func (h *Hub) removeLocked(userID, sessionID string) {
	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}
	if _, exists := subs[sessionID]; exists {
		delete(subs, sessionID)
		h.metrics.SessionsChanged(-1)
		h.logger.Debugf("Session %s left user %s (remaining: %d)", sessionID, userID, len(subs))
	}
	if len(subs) == 0 {
		delete(h.subscribers, userID)
	}
}

// Publish delivers one event to every session joined under userID and
// returns how many accepted it. Zero recipients is not an error.
func (h *Hub) Publish(userID, eventType string, payload interface{}) int {
	h.mu.Lock()
	targets := make([]Subscriber, 0, len(h.subscribers[userID]))
	for _, s := range h.subscribers[userID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	evt := Event{Type: eventType, UserID: userID, Payload: payload, Timestamp: h.now()}
	delivered := 0
	for _, s := range targets {
		if err := s.Send(evt); err != nil {
			h.logger.Warnf("Dropping session %s for user %s: %v", s.ID(), userID, err)
			h.Leave(userID, s)
			continue
		}
		delivered++
	}
	h.metrics.RealtimePublished(eventType)
	return delivered
}

// Sessions returns the number of sessions joined under userID.
func (h *Hub) Sessions(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}
