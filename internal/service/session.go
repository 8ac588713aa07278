// Package service contains the business logic that callers invoke. Every
// mutation is gated by the SessionManager.
package service

import (
	"context"
	"sync"

	"cliqd/internal/models"
	"cliqd/internal/notifications"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
)

// SessionState is the lifecycle state of the session manager.
type SessionState int

const (
	// StateInitializing is held until the persisted session has been read.
	StateInitializing SessionState = iota
	StateAnonymous
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "initializing"
	}
}

// SessionManager holds the signed-in user's projection and gates mutation.
type SessionManager struct {
	mu      sync.RWMutex
	repo    repository.SessionRepository
	hub     *notifications.Hub
	state   SessionState
	current *models.Session
	logger  *observability.StructuredLogger
}

// NewSessionManager returns a manager in the Initializing state. hub may be nil.
func NewSessionManager(repo repository.SessionRepository, hub *notifications.Hub) *SessionManager {
	return &SessionManager{
		repo:   repo,
		hub:    hub,
		state:  StateInitializing,
		logger: observability.NewStructuredLogger(),
	}
}

// publish must be called with mu held.
func (m *SessionManager) publish() {
	if m.hub == nil {
		return
	}
	var snapshot *models.Session
	if m.current != nil {
		c := *m.current
		snapshot = &c
	}
	m.hub.Publish(notifications.Change{Topic: notifications.TopicSession, Session: snapshot})
}

// Restore reads the persisted session. A missing or unreadable session
// leaves the manager Anonymous.
func (m *SessionManager) Restore(ctx context.Context) (SessionState, error) {
	ctx, span := observability.TraceServiceCall(ctx, "SessionManager", "Restore")
	session, err := m.repo.Load(ctx)
	observability.EndSpan(span, err)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil || session == nil {
		m.state = StateAnonymous
		m.current = nil
	} else {
		m.state = StateAuthenticated
		m.current = session
	}
	m.publish()
	m.logger.LogServiceCall(ctx, "SessionManager", "Restore", map[string]interface{}{"state": m.state.String()})
	return m.state, err
}

// Establish signs u in and persists the projection.
func (m *SessionManager) Establish(ctx context.Context, u *models.User) (*models.Session, error) {
	return m.replace(ctx, models.NewSession(u))
}

// replace persists session as the current projection.
func (m *SessionManager) replace(ctx context.Context, session *models.Session) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	c := *session
	m.current = &c
	m.state = StateAuthenticated
	m.publish()

	out := c
	return &out, nil
}

// Logout clears the session.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repo.Clear(ctx); err != nil {
		return err
	}
	m.current = nil
	m.state = StateAnonymous
	m.publish()
	return nil
}

// Current returns a copy of the session (nil unless Authenticated) and the state.
func (m *SessionManager) Current() (*models.Session, SessionState) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, m.state
	}
	c := *m.current
	return &c, m.state
}

// State returns the current state.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Require returns the current session or the error explaining why there is none.
func (m *SessionManager) Require() (*models.Session, error) {
	session, state := m.Current()
	switch state {
	case StateInitializing:
		return nil, models.ErrSessionInitializing
	case StateAnonymous:
		return nil, models.ErrUnauthenticated
	}
	return session, nil
}

// Authorize succeeds only when actorID is the signed-in user.
func (m *SessionManager) Authorize(actorID string) error {
	session, err := m.Require()
	if err != nil {
		return err
	}
	if session.ID != actorID {
		return models.ErrForbidden
	}
	return nil
}
