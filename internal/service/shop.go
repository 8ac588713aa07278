package service

import (
	"context"
	"strings"

	"cliqd/internal/models"
	"cliqd/internal/repository"
)

// ErrNoPurchaseLink is returned for tags without a usable link.
var ErrNoPurchaseLink = models.NewValidationError("No purchase link added for this product yet.")

// ProductView is a tagged product as seen from one post.
type ProductView struct {
	Post    models.Post       `json:"post"`
	Tag     models.ProductTag `json:"tag"`
	Related []models.Post     `json:"related"`
	// Link is empty when the tag has no purchase link.
	Link string `json:"link,omitempty"`
}

// ShopService answers the product page queries.
type ShopService struct {
	posts repository.PostRepository
}

// NewShopService returns a new ShopService.
func NewShopService(posts repository.PostRepository) *ShopService {
	return &ShopService{posts: posts}
}

// RelatedPosts returns the other posts tagging productName, compared
// case-insensitively, in feed order.
func (s *ShopService) RelatedPosts(ctx context.Context, postID, productName string) ([]models.Post, error) {
	feed, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Post, 0)
	for _, p := range feed {
		if p.ID == postID {
			continue
		}
		for _, t := range p.Tags {
			if strings.EqualFold(t.ProductName, productName) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// PurchaseLink returns the tag's link; "#" is the placeholder for none.
func PurchaseLink(tag models.ProductTag) (string, error) {
	link := strings.TrimSpace(tag.Link)
	if link == "" || link == "#" {
		return "", ErrNoPurchaseLink
	}
	return link, nil
}

// Product returns the view of tagID on postID, or NotFound when either is missing.
func (s *ShopService) Product(ctx context.Context, postID, tagID string) (*ProductView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", postID)
	}
	tag := post.Tag(tagID)
	if tag == nil {
		return nil, models.NewNotFoundError("Tag", tagID)
	}
	related, err := s.RelatedPosts(ctx, post.ID, tag.ProductName)
	if err != nil {
		return nil, err
	}
	link, _ := PurchaseLink(*tag)
	return &ProductView{Post: *post, Tag: *tag, Related: related, Link: link}, nil
}
