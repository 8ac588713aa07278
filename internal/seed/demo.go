// Package seed provides the demonstration data shown to new installations
// and helpers to generate fake users, follow edges and posts for
// development.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed demo_feed.yaml
var demoFeedYAML []byte

// Demo account credentials advertised on the sign-in screen.
const (
	DemoEmail    = "demo@cliqd.com"
	DemoPassword = "demo1234"
	DemoUsername = "demouser"
)

type demoTag struct {
	ID          string  `yaml:"id"`
	ProductName string  `yaml:"product_name"`
	Price       string  `yaml:"price"`
	Link        string  `yaml:"link"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
}

type demoPost struct {
	ID         string    `yaml:"id"`
	UserID     string    `yaml:"user_id"`
	Username   string    `yaml:"username"`
	AvatarSeed string    `yaml:"avatar_seed"`
	Caption    string    `yaml:"caption"`
	MediaURL   string    `yaml:"media_url"`
	HoursAgo   int       `yaml:"hours_ago"`
	Likes      []string  `yaml:"likes"`
	Tags       []demoTag `yaml:"tags"`
}

// ParseFeed decodes a YAML feed, stamping createdAt relative to now.
func ParseFeed(data []byte, now time.Time) ([]models.Post, error) {
	var entries []demoPost
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode demo feed: %w", err)
	}

	posts := make([]models.Post, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.MediaURL == "" {
			return nil, fmt.Errorf("demo post %q is missing an id or media", e.ID)
		}
		tags := make([]models.ProductTag, 0, len(e.Tags))
		for _, t := range e.Tags {
			tags = append(tags, models.ProductTag{
				ID: t.ID, ProductName: t.ProductName, Price: t.Price, Link: t.Link, X: t.X, Y: t.Y,
			})
		}
		likes := e.Likes
		if likes == nil {
			likes = []string{}
		}
		posts = append(posts, models.Post{
			ID:         e.ID,
			UserID:     e.UserID,
			Username:   e.Username,
			UserAvatar: service.AvatarURL(e.AvatarSeed),
			Caption:    e.Caption,
			MediaURL:   e.MediaURL,
			MediaType:  models.MediaImage,
			Tags:       tags,
			Likes:      likes,
			CreatedAt:  models.Millis(now.Add(-time.Duration(e.HoursAgo) * time.Hour)),
		})
	}
	return posts, nil
}

// DemoFeed returns the embedded demonstration posts, newest first.
func DemoFeed(now time.Time) []models.Post {
	posts, err := ParseFeed(demoFeedYAML, now)
	if err != nil {
		panic(err)
	}
	return posts
}

// AccountCreator creates accounts without signing them in.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in service.AccountInput) (*models.User, error)
}

// EnsureDemoAccount creates the demo account unless its email is taken.
// It reports whether an account was created.
func EnsureDemoAccount(ctx context.Context, creator AccountCreator) (bool, error) {
	_, err := creator.CreateAccount(ctx, service.AccountInput{
		Name:     "Demo User",
		Email:    DemoEmail,
		Username: DemoUsername,
		Password: DemoPassword,
		Bio:      "Official demo account 👋 Explore Cliqd!",
	})
	switch {
	case err == nil:
		observability.GlobalLogger.InfoContext(ctx, "demo account created", "email", DemoEmail)
		return true, nil
	case errors.Is(err, models.ErrDuplicateEmail):
		return false, nil
	case errors.Is(err, models.ErrDuplicateUsername):
		observability.GlobalLogger.WarnContext(ctx, "demo username taken by another account", "username", DemoUsername)
		return false, nil
	default:
		return false, err
	}
}
