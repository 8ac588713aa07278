package service

import (
	"context"
	"strings"
	"time"

	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
	"cliqd/internal/tagging"

	"github.com/google/uuid"
)

// CreatePostInput is the submitted post form. The author's display fields
// are taken from the session at creation time.
type CreatePostInput struct {
	AuthorID  string
	Caption   string
	MediaURL  string
	MediaType models.MediaKind
	Tags      []models.ProductTag
}

// PostService provides feed and post logic.
type PostService struct {
	posts   repository.PostRepository
	session *SessionManager
	now     func() time.Time
	logger  *observability.StructuredLogger
}

// NewPostService returns a new PostService.
func NewPostService(posts repository.PostRepository, session *SessionManager) *PostService {
	return &PostService{
		posts:   posts,
		session: session,
		now:     time.Now,
		logger:  observability.NewStructuredLogger(),
	}
}

// CreatePost prepends a new post by the signed-in author.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	if err := s.session.Authorize(in.AuthorID); err != nil {
		return nil, err
	}
	ctx, span := observability.TraceServiceCall(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(in.MediaURL) == "" {
		return nil, models.NewValidationError("media is required")
	}
	kind := in.MediaType
	if kind == "" {
		kind = models.MediaImage
	}
	if !kind.Valid() {
		return nil, models.NewValidationError("media type must be image or video")
	}
	tags, err := tagging.NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	if kind == models.MediaVideo && len(tags) > 0 {
		return nil, tagging.ErrVideoTagging
	}

	author, _ := s.session.Current()
	post = &models.Post{
		ID:         uuid.NewString(),
		UserID:     in.AuthorID,
		Username:   author.Username,
		UserAvatar: author.Avatar,
		Caption:    in.Caption,
		MediaURL:   in.MediaURL,
		MediaType:  kind,
		Tags:       tags,
		Likes:      []string{},
		CreatedAt:  models.Millis(s.now()),
	}
	if err := s.posts.Prepend(ctx, post); err != nil {
		return nil, err
	}
	s.logger.LogServiceCall(ctx, "PostService", "CreatePost", map[string]interface{}{
		"post_id": post.ID, "tags": len(tags),
	})
	return post, nil
}

// ToggleLike flips userID's like. It returns (nil, nil) when the post is missing.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	if err := s.session.Authorize(userID); err != nil {
		return nil, err
	}
	return s.posts.ToggleLike(ctx, postID, userID)
}

// DeletePost removes the post only when userID authored it.
func (s *PostService) DeletePost(ctx context.Context, postID, userID string) (bool, error) {
	if err := s.session.Authorize(userID); err != nil {
		return false, err
	}
	deleted, err := s.posts.DeleteOwned(ctx, postID, userID)
	if err != nil {
		return false, err
	}
	s.logger.LogServiceCall(ctx, "PostService", "DeletePost", map[string]interface{}{
		"post_id": postID, "deleted": deleted,
	})
	return deleted, nil
}

// Feed returns every post, newest first.
func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx)
}

// GetPost returns (nil, nil) when no post has id.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// GetPostsByUser returns the author's posts in feed order.
func (s *PostService) GetPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return s.posts.GetByUserID(ctx, userID)
}

// SearchPosts returns the whole feed for a blank query.
func (s *PostService) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	return s.posts.Search(ctx, query)
}
