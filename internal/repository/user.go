package repository

import (
	"context"
	"slices"
	"strings"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/notifications"
)

// UserRepository defines the interface for user data operations. The
// follower/following arrays are only ever written by AddEdge and RemoveEdge.
type UserRepository interface {
	// Create stores user unless its email or username is taken, checked in that order.
	Create(ctx context.Context, user *models.User) error
	// GetByID returns (nil, nil) when no user has id.
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByIDs resolves ids in order, skipping ids that do not resolve.
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// List returns every user ordered by createdAt, then id.
	List(ctx context.Context) ([]models.User, error)
	// Search matches username or name case-insensitively, in List order.
	Search(ctx context.Context, query string) ([]models.User, error)
	// UpdateProfile merges patch into the user; (nil, nil) when id is unknown.
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error)
	// AddEdge makes followerID follow followeeID, writing both sides at once.
	AddEdge(ctx context.Context, followerID, followeeID string) (bool, error)
	// RemoveEdge removes the edge from both sides at once.
	RemoveEdge(ctx context.Context, followerID, followeeID string) (bool, error)
}

// userRepository implements UserRepository. Users are persisted as a
// mapping from id to document.
type userRepository struct {
	users *collection[map[string]models.User]
}

// NewUserRepository creates a new user repository over store. hub may be nil.
func NewUserRepository(store kvstore.Store, hub *notifications.Hub) UserRepository {
	c := newCollection(store, KeyUsers, func() map[string]models.User { return map[string]models.User{} })
	if hub != nil {
		c.onWrite = func(_ context.Context, users map[string]models.User) {
			hub.Publish(notifications.Change{Topic: notifications.TopicUsers, Users: sortedUsers(users)})
		}
	}
	return &userRepository{users: c}
}

// sortedUsers returns deep copies ordered by createdAt, then id.
func sortedUsers(users map[string]models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Clone())
	}
	slices.SortFunc(out, func(a, b models.User) int {
		switch {
		case a.CreatedAt < b.CreatedAt:
			return -1
		case a.CreatedAt > b.CreatedAt:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
	return out
}

func findUser(users map[string]models.User, match func(*models.User) bool) (models.User, bool) {
	for _, u := range users {
		if match(&u) {
			return u, true
		}
	}
	return models.User{}, false
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.users.update(ctx, func(users *map[string]models.User) (bool, error) {
		if *users == nil {
			*users = map[string]models.User{}
		}
		if _, taken := findUser(*users, func(u *models.User) bool { return u.Email == user.Email }); taken {
			return false, models.ErrDuplicateEmail
		}
		if _, taken := findUser(*users, func(u *models.User) bool { return u.Username == user.Username }); taken {
			return false, models.ErrDuplicateUsername
		}
		(*users)[user.ID] = user.Clone()
		return true, nil
	})
	if err != nil {
		return err
	}
	r.users.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID, "username": user.Username})
	return nil
}

func (r *userRepository) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	var found *models.User
	err := r.users.view(ctx, func(users map[string]models.User) {
		if u, ok := findUser(users, match); ok {
			c := u.Clone()
			found = &c
		}
	})
	return found, err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, nil
	}
	var found *models.User
	err := r.users.view(ctx, func(users map[string]models.User) {
		if u, ok := users[id]; ok {
			c := u.Clone()
			found = &c
		}
	})
	return found, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Username == username })
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	err := r.users.view(ctx, func(users map[string]models.User) {
		for _, id := range ids {
			if u, ok := users[id]; ok {
				out = append(out, u.Clone())
			}
		}
	})
	return out, err
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.users.view(ctx, func(users map[string]models.User) {
		out = sortedUsers(users)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepository) Search(ctx context.Context, query string) ([]models.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	var updated *models.User
	_, err := r.users.update(ctx, func(users *map[string]models.User) (bool, error) {
		u, ok := (*users)[id]
		if !ok {
			return false, nil
		}
		patch.Apply(&u)
		(*users)[id] = u
		c := u.Clone()
		updated = &c
		return !patch.Empty(), nil
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		r.users.log.LogUpdate(ctx, map[string]interface{}{"user_id": id})
	}
	return updated, nil
}

func (r *userRepository) AddEdge(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, nil
	}
	changed, err := r.users.update(ctx, func(users *map[string]models.User) (bool, error) {
		follower, ok := (*users)[followerID]
		if !ok {
			return false, nil
		}
		followee, ok := (*users)[followeeID]
		if !ok || follower.IsFollowing(followeeID) {
			return false, nil
		}
		follower.Following = append(slices.Clone(follower.Following), followeeID)
		if !slices.Contains(followee.Followers, followerID) {
			followee.Followers = append(slices.Clone(followee.Followers), followerID)
		}
		(*users)[followerID] = follower
		(*users)[followeeID] = followee
		return true, nil
	})
	if changed {
		r.users.log.LogUpdate(ctx, map[string]interface{}{"edge": "follow", "follower_id": followerID, "followee_id": followeeID})
	}
	return changed, err
}

func (r *userRepository) RemoveEdge(ctx context.Context, followerID, followeeID string) (bool, error) {
	changed, err := r.users.update(ctx, func(users *map[string]models.User) (bool, error) {
		follower, ok := (*users)[followerID]
		if !ok {
			return false, nil
		}
		followee, ok := (*users)[followeeID]
		if !ok {
			return false, nil
		}
		follower.Following = removeID(follower.Following, followeeID)
		followee.Followers = removeID(followee.Followers, followerID)
		(*users)[followerID] = follower
		// A self-edge imported from older data lives in one record.
		if followerID == followeeID {
			follower.Followers = followee.Followers
			(*users)[followerID] = follower
		} else {
			(*users)[followeeID] = followee
		}
		return true, nil
	})
	if changed {
		r.users.log.LogUpdate(ctx, map[string]interface{}{"edge": "unfollow", "follower_id": followerID, "followee_id": followeeID})
	}
	return changed, err
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
