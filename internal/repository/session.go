package repository

import (
	"context"
	"fmt"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
)

// SessionRepository persists the signed-in user's projection.
type SessionRepository interface {
	// Load returns nil when no usable session is stored.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context) error
}

// sessionRepository implements SessionRepository
type sessionRepository struct {
	store   kvstore.Store
	session *collection[*models.Session]
}

// NewSessionRepository creates a new session repository over store.
func NewSessionRepository(store kvstore.Store) SessionRepository {
	return &sessionRepository{
		store:   store,
		session: newCollection(store, KeySession, func() *models.Session { return nil }),
	}
}

func (r *sessionRepository) Load(ctx context.Context) (*models.Session, error) {
	var found *models.Session
	err := r.session.view(ctx, func(s *models.Session) {
		if s != nil && s.ID != "" {
			c := *s
			found = &c
		}
	})
	return found, err
}

func (r *sessionRepository) Save(ctx context.Context, session *models.Session) error {
	c := *session
	_, err := r.session.update(ctx, func(s **models.Session) (bool, error) {
		*s = &c
		return true, nil
	})
	if err == nil {
		r.session.log.LogUpdate(ctx, map[string]interface{}{"user_id": session.ID})
	}
	return err
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()

	if err := r.store.Delete(ctx, KeySession); err != nil {
		r.session.log.LogError(ctx, err, "delete")
		return models.NewInternalError(fmt.Errorf("delete session: %w", err))
	}
	r.session.log.LogDelete(ctx, nil)
	return nil
}
