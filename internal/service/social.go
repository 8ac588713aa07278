package service

import (
	"context"

	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
)

// SocialService provides follow graph logic. The follower and following
// arrays are written only through the user repository's edge functions.
type SocialService struct {
	users   repository.UserRepository
	session *SessionManager
	logger  *observability.StructuredLogger
}

// NewSocialService returns a new SocialService.
func NewSocialService(users repository.UserRepository, session *SessionManager) *SocialService {
	return &SocialService{users: users, session: session, logger: observability.NewStructuredLogger()}
}

// Follow makes actorID follow targetID. It reports false without writing
// when either user is unknown, the edge exists or actorID == targetID.
func (s *SocialService) Follow(ctx context.Context, actorID, targetID string) (ok bool, err error) {
	if err := s.session.Authorize(actorID); err != nil {
		return false, err
	}
	ctx, span := observability.TraceServiceCall(ctx, "SocialService", "Follow")
	defer func() { observability.EndSpan(span, err) }()

	ok, err = s.users.AddEdge(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	s.logger.LogServiceCall(ctx, "SocialService", "Follow", map[string]interface{}{
		"actor_id": actorID, "target_id": targetID, "changed": ok,
	})
	return ok, nil
}

// Unfollow removes the edge from both sides. It reports false only when
// either user is unknown.
func (s *SocialService) Unfollow(ctx context.Context, actorID, targetID string) (ok bool, err error) {
	if err := s.session.Authorize(actorID); err != nil {
		return false, err
	}
	ctx, span := observability.TraceServiceCall(ctx, "SocialService", "Unfollow")
	defer func() { observability.EndSpan(span, err) }()

	ok, err = s.users.RemoveEdge(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	s.logger.LogServiceCall(ctx, "SocialService", "Unfollow", map[string]interface{}{
		"actor_id": actorID, "target_id": targetID, "changed": ok,
	})
	return ok, nil
}

// IsFollowing reports whether actorID follows targetID.
func (s *SocialService) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil || actor == nil {
		return false, err
	}
	return actor.IsFollowing(targetID), nil
}

// FollowerCount is zero for unknown users.
func (s *SocialService) FollowerCount(ctx context.Context, userID string) (int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return 0, err
	}
	return len(u.Followers), nil
}

// FollowingCount is zero for unknown users.
func (s *SocialService) FollowingCount(ctx context.Context, userID string) (int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return 0, err
	}
	return len(u.Following), nil
}

// GetFollowers resolves the user's followers, dropping ids that no longer resolve.
func (s *SocialService) GetFollowers(ctx context.Context, userID string) ([]models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []models.User{}, nil
	}
	return s.users.GetByIDs(ctx, u.Followers)
}

// GetFollowing resolves the users userID follows.
func (s *SocialService) GetFollowing(ctx context.Context, userID string) ([]models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []models.User{}, nil
	}
	return s.users.GetByIDs(ctx, u.Following)
}
