package seed

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"cliqd/internal/catalog"
	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
	"cliqd/internal/service"
	"cliqd/internal/tagging"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Options controls how much fake data Seed generates.
type Options struct {
	NumUsers       int
	NumPosts       int
	FollowsPerUser int
	LikesPerPost   int
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays  int
	Password string
	// RandSeed makes the generated data reproducible; zero uses the clock.
	RandSeed int64
}

// DefaultOptions is a small but connected social mesh.
var DefaultOptions = Options{
	NumUsers:       12,
	NumPosts:       30,
	FollowsPerUser: 4,
	LikesPerPost:   3,
	MaxDays:        30,
	Password:       "password123",
}

// Summary counts what Seed wrote.
type Summary struct {
	Users   int
	Posts   int
	Follows int
	Likes   int
}

// Factory builds fake users, follow edges and posts and writes them
// through the repositories. It does not go through the session gate.
type Factory struct {
	accounts AccountCreator
	users    repository.UserRepository
	posts    repository.PostRepository
	products *catalog.Catalog
	faker    *gofakeit.Faker
	opts     Options
	now      func() time.Time
}

// NewFactory creates a new Factory.
func NewFactory(accounts AccountCreator, users repository.UserRepository, posts repository.PostRepository, products *catalog.Catalog, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.Password == "" {
		opts.Password = DefaultOptions.Password
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultOptions.MaxDays
	}
	return &Factory{
		accounts: accounts,
		users:    users,
		posts:    posts,
		products: products,
		faker:    gofakeit.New(seed),
		opts:     opts,
		now:      time.Now,
	}
}

// CreateUser creates an account with fake profile fields. Overrides run
// before the account is stored.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*service.AccountInput)) (*models.User, error) {
	username := strings.ToLower(fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)))
	in := service.AccountInput{
		Name:     f.faker.Name(),
		Email:    f.faker.Email(),
		Username: username,
		Password: f.opts.Password,
		Bio:      f.faker.Sentence(8),
	}
	for _, override := range overrides {
		override(&in)
	}
	return f.accounts.CreateAccount(ctx, in)
}

// BuildPost constructs a post by author without storing it. Image posts
// get up to two catalog products tagged at random points.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		ID:         uuid.NewString(),
		UserID:     author.ID,
		Username:   author.Username,
		UserAvatar: author.Avatar,
		Caption:    f.faker.Sentence(f.faker.Number(4, 12)),
		MediaURL:   fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
		MediaType:  models.MediaImage,
		Tags:       []models.ProductTag{},
		Likes:      []string{},
		CreatedAt:  models.Millis(f.randomTime()),
	}

	if f.faker.Number(1, 10) == 1 {
		post.MediaType = models.MediaVideo
	} else if f.products != nil {
		all := f.products.All()
		for i := f.faker.Number(0, 2); i > 0 && len(all) > 0; i-- {
			p := all[f.faker.Number(0, len(all)-1)]
			post.Tags = append(post.Tags, models.ProductTag{
				ID:          uuid.NewString(),
				ProductName: p.Name,
				Price:       p.Price,
				Link:        tagging.DefaultLink,
				X:           tagging.Round1(f.faker.Float64Range(5, 95)),
				Y:           tagging.Round1(f.faker.Float64Range(5, 95)),
			})
		}
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// randomTime spreads timestamps over the last MaxDays.
func (f *Factory) randomTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays-1))*24*time.Hour +
		time.Duration(f.faker.Number(0, 23))*time.Hour +
		time.Duration(f.faker.Number(0, 59))*time.Minute
	return f.now().Add(-back)
}

// CreatePost builds and prepends a post by author.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.posts.Prepend(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Seed creates users, a random follow mesh, posts and likes.
func (f *Factory) Seed(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	users := make([]*models.User, 0, f.opts.NumUsers)
	for i := 0; i < f.opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return summary, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
		summary.Users++
	}
	if len(users) == 0 {
		return summary, nil
	}

	for _, u := range users {
		for i := 0; i < f.opts.FollowsPerUser; i++ {
			target := users[f.faker.Number(0, len(users)-1)]
			added, err := f.users.AddEdge(ctx, u.ID, target.ID)
			if err != nil {
				return summary, fmt.Errorf("follow: %w", err)
			}
			if added {
				summary.Follows++
			}
		}
	}

	// Build first so the feed can be written oldest to newest.
	posts := make([]*models.Post, 0, f.opts.NumPosts)
	for i := 0; i < f.opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[f.faker.Number(0, len(users)-1)]))
	}
	slices.SortFunc(posts, func(a, b *models.Post) int {
		switch {
		case a.CreatedAt < b.CreatedAt:
			return -1
		case a.CreatedAt > b.CreatedAt:
			return 1
		default:
			return 0
		}
	})
	for _, p := range posts {
		if err := f.posts.Prepend(ctx, p); err != nil {
			return summary, fmt.Errorf("create post: %w", err)
		}
		summary.Posts++

		likers := map[string]bool{}
		for i := 0; i < f.opts.LikesPerPost; i++ {
			liker := users[f.faker.Number(0, len(users)-1)]
			if likers[liker.ID] {
				continue
			}
			likers[liker.ID] = true
			if _, err := f.posts.ToggleLike(ctx, p.ID, liker.ID); err != nil {
				return summary, fmt.Errorf("like: %w", err)
			}
			summary.Likes++
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		"users", summary.Users, "posts", summary.Posts, "follows", summary.Follows, "likes", summary.Likes)
	return summary, nil
}
