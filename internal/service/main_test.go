package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/notifications"
	"cliqd/internal/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sessionRepoStub struct {
	loadFn  func(context.Context) (*models.Session, error)
	saveFn  func(context.Context, *models.Session) error
	clearFn func(context.Context) error
}

func (s *sessionRepoStub) Load(ctx context.Context) (*models.Session, error) {
	return s.loadFn(ctx)
}
func (s *sessionRepoStub) Save(ctx context.Context, session *models.Session) error {
	return s.saveFn(ctx, session)
}
func (s *sessionRepoStub) Clear(ctx context.Context) error {
	return s.clearFn(ctx)
}

func noopSessionRepo() *sessionRepoStub {
	return &sessionRepoStub{
		loadFn:  func(context.Context) (*models.Session, error) { return nil, nil },
		saveFn:  func(context.Context, *models.Session) error { return nil },
		clearFn: func(context.Context) error { return nil },
	}
}

// testEnv wires real repositories over a memory store.
type testEnv struct {
	store    *kvstore.MemoryStore
	hub      *notifications.Hub
	users    repository.UserRepository
	posts    repository.PostRepository
	sessions repository.SessionRepository
	session  *SessionManager
	identity *IdentityService
	social   *SocialService
	content  *PostService
	search   *SearchService
	shop     *ShopService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOver(t, kvstore.NewMemoryStore())
}

func newTestEnvOver(t *testing.T, store *kvstore.MemoryStore) *testEnv {
	t.Helper()
	hub := notifications.NewHub()
	t.Cleanup(hub.Close)

	env := &testEnv{
		store:    store,
		hub:      hub,
		users:    repository.NewUserRepository(store, hub),
		posts:    repository.NewPostRepository(store, hub, nil),
		sessions: repository.NewSessionRepository(store),
	}
	env.session = NewSessionManager(env.sessions, hub)
	env.identity = NewIdentityService(env.users, env.session, bcrypt.MinCost)
	env.social = NewSocialService(env.users, env.session)
	env.content = NewPostService(env.posts, env.session)
	env.search = NewSearchService(env.users, env.posts)
	env.identity.now = tickingClock()
	env.content.now = tickingClock()
	env.shop = NewShopService(env.posts)

	_, err := env.session.Restore(context.Background())
	require.NoError(t, err)
	return env
}

// register signs up a user and leaves them signed in.
func (e *testEnv) register(t *testing.T, name, email, username string) *models.Session {
	t.Helper()
	s, err := e.identity.Register(context.Background(), name, email, "secret1", username)
	require.NoError(t, err)
	return s
}

// account creates a user without touching the session.
func (e *testEnv) account(t *testing.T, name, username string) *models.User {
	t.Helper()
	u, err := e.identity.CreateAccount(context.Background(), AccountInput{
		Name: name, Email: username + "@x.com", Username: username, Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

// signIn establishes u as the session user.
func (e *testEnv) signIn(t *testing.T, u *models.User) {
	t.Helper()
	_, err := e.session.Establish(context.Background(), u)
	require.NoError(t, err)
}

// writeUsers replaces the persisted users document.
func writeUsers(t *testing.T, e *testEnv, users map[string]models.User) {
	t.Helper()
	data, err := json.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, e.store.Put(context.Background(), repository.KeyUsers, data))
}

// tickingClock advances one second per call so createdAt values are distinct.
func tickingClock() func() time.Time {
	var ticks atomic.Int64
	base := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}
