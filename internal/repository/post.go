package repository

import (
	"context"
	"strings"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/notifications"
)

// PostRepository defines the interface for post data operations. Posts
// are kept newest first.
type PostRepository interface {
	// List returns the whole feed, newest first.
	List(ctx context.Context) ([]models.Post, error)
	// GetByID returns (nil, nil) when no post has id.
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Post, error)
	// Search matches caption, author username or any tag product name.
	Search(ctx context.Context, query string) ([]models.Post, error)
	// Prepend inserts post at the head of the feed.
	Prepend(ctx context.Context, post *models.Post) error
	// ToggleLike flips userID's like; (nil, nil) when the post is missing.
	ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error)
	// DeleteOwned removes the post only when userID is its author.
	DeleteOwned(ctx context.Context, postID, userID string) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	posts *collection[[]models.Post]
}

// NewPostRepository creates a new post repository over store. seed builds
// the feed written when the posts key is absent or undecodable; nil means
// an empty feed. hub may be nil.
func NewPostRepository(store kvstore.Store, hub *notifications.Hub, seed func() []models.Post) PostRepository {
	fallback := func() []models.Post { return []models.Post{} }
	if seed != nil {
		fallback = seed
	}
	c := newCollection(store, KeyPosts, fallback)
	c.materialize = seed != nil
	if hub != nil {
		c.onWrite = func(_ context.Context, posts []models.Post) {
			hub.Publish(notifications.Change{Topic: notifications.TopicPosts, Posts: clonePosts(posts)})
		}
	}
	return &postRepository{posts: c}
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i := range posts {
		out[i] = posts[i].Clone()
	}
	return out
}

func indexOfPost(posts []models.Post, id string) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *postRepository) filter(ctx context.Context, match func(*models.Post) bool) ([]models.Post, error) {
	out := make([]models.Post, 0)
	err := r.posts.view(ctx, func(posts []models.Post) {
		for i := range posts {
			if match(&posts[i]) {
				out = append(out, posts[i].Clone())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	return r.filter(ctx, func(*models.Post) bool { return true })
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var found *models.Post
	err := r.posts.view(ctx, func(posts []models.Post) {
		if i := indexOfPost(posts, id); i >= 0 {
			p := posts[i].Clone()
			found = &p
		}
	})
	return found, err
}

func (r *postRepository) GetByUserID(ctx context.Context, userID string) ([]models.Post, error) {
	return r.filter(ctx, func(p *models.Post) bool { return p.UserID == userID })
}

func (r *postRepository) Search(ctx context.Context, query string) ([]models.Post, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.List(ctx)
	}
	return r.filter(ctx, func(p *models.Post) bool {
		if strings.Contains(strings.ToLower(p.Caption), q) || strings.Contains(strings.ToLower(p.Username), q) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag.ProductName), q) {
				return true
			}
		}
		return false
	})
}

func (r *postRepository) Prepend(ctx context.Context, post *models.Post) error {
	_, err := r.posts.update(ctx, func(posts *[]models.Post) (bool, error) {
		next := make([]models.Post, 0, len(*posts)+1)
		next = append(next, post.Clone())
		*posts = append(next, *posts...)
		return true, nil
	})
	if err != nil {
		return err
	}
	r.posts.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": post.UserID})
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	var updated *models.Post
	_, err := r.posts.update(ctx, func(posts *[]models.Post) (bool, error) {
		i := indexOfPost(*posts, postID)
		if i < 0 {
			return false, nil
		}
		p := &(*posts)[i]
		if p.LikedBy(userID) {
			p.Likes = removeID(p.Likes, userID)
		} else {
			p.Likes = append(p.Likes, userID)
		}
		c := p.Clone()
		updated = &c
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		r.posts.log.LogUpdate(ctx, map[string]interface{}{"post_id": postID, "likes": updated.LikeCount()})
	}
	return updated, nil
}

func (r *postRepository) DeleteOwned(ctx context.Context, postID, userID string) (bool, error) {
	removed, err := r.posts.update(ctx, func(posts *[]models.Post) (bool, error) {
		i := indexOfPost(*posts, postID)
		if i < 0 || (*posts)[i].UserID != userID {
			return false, nil
		}
		*posts = append((*posts)[:i:i], (*posts)[i+1:]...)
		return true, nil
	})
	if removed {
		r.posts.log.LogDelete(ctx, map[string]interface{}{"post_id": postID, "user_id": userID})
	}
	return removed, err
}
