// Command seed fills the configured store with fake users, follow edges and posts.
package main

import (
	"context"
	"flag"
	"log"

	"cliqd/internal/bootstrap"
	"cliqd/internal/config"
	"cliqd/internal/repository"
	"cliqd/internal/seed"
)

func main() {
	numUsers := flag.Int("users", seed.DefaultOptions.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", seed.DefaultOptions.NumPosts, "Number of posts to create")
	follows := flag.Int("follows", seed.DefaultOptions.FollowsPerUser, "Follow attempts per user")
	likes := flag.Int("likes", seed.DefaultOptions.LikesPerPost, "Like attempts per post")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	shouldClean := flag.Bool("clean", false, "Delete users, posts and session before seeding")
	flag.Parse()

	log.Println("🌱 cliqd seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	app, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = app.Close(ctx) }()

	if *shouldClean {
		for _, key := range []string{repository.KeyUsers, repository.KeyPosts, repository.KeySession} {
			if err := app.Store.Delete(ctx, key); err != nil {
				log.Fatalf("❌ Cleanup failed: %v", err)
			}
		}
	}

	opts := seed.DefaultOptions
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.FollowsPerUser = *follows
	opts.LikesPerPost = *likes
	opts.RandSeed = *randSeed

	factory := seed.NewFactory(app.Identity, app.Users, app.Posts, app.Catalog, opts)
	summary, err := factory.Seed(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d users, %d posts, %d follows, %d likes", summary.Users, summary.Posts, summary.Follows, summary.Likes)
	log.Printf("📧 All seeded users have the password: %s", opts.Password)
}
