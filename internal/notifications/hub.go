// Package notifications publishes immutable collection snapshots to
// in-process subscribers whenever a collection is written.
package notifications

import (
	"sync"

	"cliqd/internal/models"
	"cliqd/internal/observability"
)

// Topic names a published collection.
type Topic string

const (
	TopicUsers   Topic = "users"
	TopicPosts   Topic = "posts"
	TopicSession Topic = "session"
)

// Change is one published snapshot. Exactly one of Users, Posts or Session
// is meaningful, selected by Topic. A nil Session on TopicSession means
// signed out. Snapshots are owned by the hub once published and must not be
// mutated by publishers or subscribers.
type Change struct {
	Revision uint64
	Topic    Topic
	Users    []models.User
	Posts    []models.Post
	Session  *models.Session
}

// Subscription receives the latest change for its topics. When the
// subscriber lags, older undelivered changes are replaced by newer ones.
type Subscription struct {
	hub    *Hub
	topics map[Topic]bool
	ch     chan Change
}

// C returns the delivery channel. It is closed by Close or Hub.Close.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

func (s *Subscription) wants(t Topic) bool {
	return len(s.topics) == 0 || s.topics[t]
}

// Hub fans changes out to subscribers and tracks a monotonically
// increasing revision.
type Hub struct {
	mu       sync.RWMutex
	revision uint64
	latest   map[Topic]Change
	subs     map[*Subscription]struct{}
	closed   bool
}

// NewHub creates a hub with revision zero.
func NewHub() *Hub {
	return &Hub{
		latest: make(map[Topic]Change),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Publish stamps change with the next revision, records it as the latest
// snapshot of its topic and delivers it without blocking.
func (h *Hub) Publish(change Change) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.revision++
	change.Revision = h.revision
	h.latest[change.Topic] = change
	observability.HubRevision.Set(float64(h.revision))

	if h.closed {
		return change.Revision
	}
	for sub := range h.subs {
		if sub.wants(change.Topic) {
			trySend(sub.ch, change)
		}
	}
	return change.Revision
}

// trySend delivers change, replacing an unread one if the buffer is full.
func trySend(ch chan Change, change Change) {
	select {
	case ch <- change:
		return
	default:
	}
	select {
	case stale := <-ch:
		observability.HubDroppedSnapshots.WithLabelValues(string(stale.Topic)).Inc()
	default:
	}
	select {
	case ch <- change:
	default:
	}
}

// Revision returns the latest published revision.
func (h *Hub) Revision() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revision
}

// Latest returns the most recent change published on topic.
func (h *Hub) Latest(topic Topic) (Change, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.latest[topic]
	return c, ok
}

// Subscribe registers a subscriber for topics (all topics when none are
// given). The current latest snapshot of each topic is not replayed.
func (h *Hub) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		hub:    h,
		topics: make(map[Topic]bool, len(topics)),
		ch:     make(chan Change, 1),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Close closes every subscription. Later publishes still advance the
// revision but are not delivered.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = make(map[*Subscription]struct{})
}
