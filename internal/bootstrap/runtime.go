// Package bootstrap assembles the runtime from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cliqd/internal/catalog"
	"cliqd/internal/config"
	"cliqd/internal/database"
	"cliqd/internal/featureflags"
	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/notifications"
	"cliqd/internal/observability"
	"cliqd/internal/repository"
	"cliqd/internal/seed"
	"cliqd/internal/service"
)

// Options control runtime initialization behavior.
type Options struct {
	// LogWriter receives structured logs; nil means stderr.
	LogWriter io.Writer
	// Store overrides the configured backend.
	Store kvstore.Store
}

// App holds the wired components.
type App struct {
	Config  *config.Config
	Store   kvstore.Store
	Hub     *notifications.Hub
	Flags   *featureflags.Manager
	Catalog *catalog.Catalog

	Users    repository.UserRepository
	Posts    repository.PostRepository
	Sessions repository.SessionRepository

	Session  *service.SessionManager
	Identity *service.IdentityService
	Social   *service.SocialService
	Content  *service.PostService
	Search   *service.SearchService
	Shop     *service.ShopService

	shutdownTracing func(context.Context) error
}

// OpenStore connects the backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (kvstore.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return kvstore.NewSQLStore(db, cfg.StoreNamespace), nil
	case config.DriverRedis:
		client, err := kvstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return kvstore.NewRedisStore(client, cfg.StoreNamespace), nil
	case config.DriverMemory:
		return kvstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// InitRuntime configures logging and tracing, opens the store, wires the
// repositories and services and restores the persisted session.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	observability.ConfigureLogging(w, cfg.LogLevel, cfg.LogFormat)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "cliqd",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	})
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		if store, err = OpenStore(ctx, cfg); err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
	}

	app := &App{
		Config:          cfg,
		Store:           kvstore.Instrument(store, cfg.StoreDriver),
		Hub:             notifications.NewHub(),
		Flags:           featureflags.NewManager(cfg.FeatureFlags),
		Catalog:         catalog.Default(),
		shutdownTracing: shutdown,
	}

	var demoFeed func() []models.Post
	if app.Flags.Active(featureflags.DemoFeed) {
		demoFeed = func() []models.Post { return seed.DemoFeed(time.Now()) }
	}
	app.Users = repository.NewUserRepository(app.Store, app.Hub)
	app.Posts = repository.NewPostRepository(app.Store, app.Hub, demoFeed)
	app.Sessions = repository.NewSessionRepository(app.Store)

	app.Session = service.NewSessionManager(app.Sessions, app.Hub)
	app.Identity = service.NewIdentityService(app.Users, app.Session, cfg.BcryptCost)
	app.Social = service.NewSocialService(app.Users, app.Session)
	app.Content = service.NewPostService(app.Posts, app.Session)
	app.Search = service.NewSearchService(app.Users, app.Posts)
	app.Shop = service.NewShopService(app.Posts)

	// Startup never fails on unreadable data; the session falls back to anonymous.
	if _, err := app.Session.Restore(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "session restore failed", "error", err.Error())
	}

	if app.Flags.Active(featureflags.DemoAccount) {
		if _, err := seed.EnsureDemoAccount(ctx, app.Identity); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "demo account setup failed", "error", err.Error())
		}
	}

	observability.GlobalLogger.DebugContext(ctx, "runtime initialized",
		"driver", cfg.StoreDriver, "session", app.Session.State().String())
	return app, nil
}

// Close releases the hub, the store and the tracer.
func (a *App) Close(ctx context.Context) error {
	a.Hub.Close()
	return errors.Join(a.Store.Close(), a.shutdownTracing(ctx))
}
