package service

import (
	"context"
	"strings"

	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
)

// SearchResult is the unified result over people and posts. Active is
// false when the query was blank.
type SearchResult struct {
	Query  string        `json:"query"`
	Active bool          `json:"active"`
	Users  []models.User `json:"users"`
	Posts  []models.Post `json:"posts"`
}

// SearchService runs cross-entity search. It holds no state of its own.
type SearchService struct {
	users repository.UserRepository
	posts repository.PostRepository
}

// NewSearchService returns a new SearchService.
func NewSearchService(users repository.UserRepository, posts repository.PostRepository) *SearchService {
	return &SearchService{users: users, posts: posts}
}

// Search matches users by username or name and posts by caption, author
// or tagged product. Each list keeps its store order.
func (s *SearchService) Search(ctx context.Context, query string) (result *SearchResult, err error) {
	ctx, span := observability.TraceServiceCall(ctx, "SearchService", "Search")
	defer func() { observability.EndSpan(span, err) }()

	result = &SearchResult{Query: query, Users: []models.User{}}
	if strings.TrimSpace(query) == "" {
		if result.Posts, err = s.posts.List(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	result.Active = true
	if result.Users, err = s.users.Search(ctx, query); err != nil {
		return nil, err
	}
	if result.Posts, err = s.posts.Search(ctx, query); err != nil {
		return nil, err
	}
	return result, nil
}

// SearchUsers returns no users for a blank query.
func (s *SearchService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return []models.User{}, nil
	}
	return s.users.Search(ctx, query)
}
