package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/notifications"
	"cliqd/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, username, email string, createdAt int64) *models.User {
	return &models.User{
		ID:        id,
		Name:      "Name " + id,
		Email:     email,
		Username:  username,
		Followers: []string{},
		Following: []string{},
		CreatedAt: createdAt,
	}
}

func seedUsers(t *testing.T, repo UserRepository, users ...*models.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, repo.Create(context.Background(), u))
	}
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		candidate   *models.User
		expectedErr error
	}{
		{"Unique", newUser("u2", "bob", "bob@x.com", 2), nil},
		{"Duplicate email", newUser("u2", "bob", "a@x.com", 2), models.ErrDuplicateEmail},
		{"Duplicate username", newUser("u2", "alice", "bob@x.com", 2), models.ErrDuplicateUsername},
		{"Both taken reports email first", newUser("u2", "alice", "a@x.com", 2), models.ErrDuplicateEmail},
		{"Email match is case-sensitive", newUser("u2", "bob", "A@x.com", 2), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewUserRepository(kvstore.NewMemoryStore(), nil)
			seedUsers(t, repo, newUser("u1", "alice", "a@x.com", 1))

			err := repo.Create(ctx, tt.candidate)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				users, listErr := repo.List(ctx)
				require.NoError(t, listErr)
				assert.Len(t, users, 1)
				return
			}
			require.NoError(t, err)
			got, err := repo.GetByID(ctx, "u2")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.candidate.Email, got.Email)
		})
	}
}

func TestUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemoryStore(), nil)

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newUser(fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i), "same@x.com", int64(i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, models.ErrDuplicateEmail)
		}
	}
	assert.Equal(t, 1, succeeded)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemoryStore(), nil)
	seedUsers(t, repo,
		newUser("u1", "alice", "a@x.com", 1),
		newUser("u2", "bob", "b@x.com", 2),
	)

	u, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u2", u.ID)

	u, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	u, err = repo.GetByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.GetByID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, u)

	resolved, err := repo.GetByIDs(ctx, []string{"u2", "ghost", "u1"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "u2", resolved[0].ID)
	assert.Equal(t, "u1", resolved[1].ID)
}

func TestUserRepository_ListOrderAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemoryStore(), nil)
	seedUsers(t, repo,
		newUser("c", "zed", "z@x.com", 5),
		newUser("b", "Stylehaus", "s@x.com", 1),
		newUser("a", "amy", "amy@x.com", 1),
	)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	ids := []string{users[0].ID, users[1].ID, users[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	found, err := repo.Search(ctx, "STYLE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].ID)

	found, err = repo.Search(ctx, "name")
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemoryStore(), nil)
	seedUsers(t, repo, newUser("u1", "alice", "a@x.com", 1))

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	u.Name = "mutated"
	u.Following = append(u.Following, "x")

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Name u1", again.Name)
	assert.Empty(t, again.Following)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	repo := NewUserRepository(store, nil)
	seedUsers(t, repo, newUser("u1", "alice", "a@x.com", 1))

	bio := "new bio"
	u, err := repo.UpdateProfile(ctx, "u1", models.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new bio", u.Bio)
	assert.Equal(t, "Name u1", u.Name)

	before := store.puts.Load()
	u, err = repo.UpdateProfile(ctx, "u1", models.ProfilePatch{})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, before, store.puts.Load())

	u, err = repo.UpdateProfile(ctx, "ghost", models.ProfilePatch{Bio: &bio})
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_Edges(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	hub := notifications.NewHub()
	repo := NewUserRepository(store, hub)
	seedUsers(t, repo,
		newUser("a", "alice", "a@x.com", 1),
		newUser("b", "bob", "b@x.com", 2),
	)

	t.Run("add writes both sides once", func(t *testing.T) {
		before := store.puts.Load()
		rev := hub.Revision()

		ok, err := repo.AddEdge(ctx, "a", "b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, before+1, store.puts.Load())
		assert.Equal(t, rev+1, hub.Revision())

		a, _ := repo.GetByID(ctx, "a")
		b, _ := repo.GetByID(ctx, "b")
		assert.Equal(t, []string{"b"}, a.Following)
		assert.Equal(t, []string{"a"}, b.Followers)

		latest, found := hub.Latest(notifications.TopicUsers)
		require.True(t, found)
		assert.Len(t, latest.Users, 2)
	})

	t.Run("add is not repeated", func(t *testing.T) {
		before := store.puts.Load()
		ok, err := repo.AddEdge(ctx, "a", "b")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, store.puts.Load())
	})

	t.Run("self and unknown ids are rejected", func(t *testing.T) {
		before := store.puts.Load()
		for _, pair := range [][2]string{{"a", "a"}, {"a", "ghost"}, {"ghost", "a"}} {
			ok, err := repo.AddEdge(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.False(t, ok)
		}
		ok, err := repo.RemoveEdge(ctx, "a", "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, store.puts.Load())
	})

	t.Run("remove restores the original arrays", func(t *testing.T) {
		ok, err := repo.RemoveEdge(ctx, "a", "b")
		require.NoError(t, err)
		assert.True(t, ok)

		a, _ := repo.GetByID(ctx, "a")
		b, _ := repo.GetByID(ctx, "b")
		assert.Empty(t, a.Following)
		assert.Empty(t, b.Followers)

		ok, err = repo.RemoveEdge(ctx, "a", "b")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestUserRepository_CorruptDocumentFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	require.NoError(t, store.MemoryStore.Put(ctx, KeyUsers, []byte(`{not json`)))

	var buf bytes.Buffer
	observability.ConfigureLogging(&buf, "debug", "json")
	t.Cleanup(func() { observability.ConfigureLogging(&bytes.Buffer{}, "info", "json") })

	repo := NewUserRepository(store, nil)
	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, int64(0), store.puts.Load())
	assert.Contains(t, buf.String(), "document decode failed")
	assert.Contains(t, buf.String(), `"collection":"users"`)

	seedUsers(t, repo, newUser("u1", "alice", "a@x.com", 1))
	users, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepository_StoreErrors(t *testing.T) {
	repo := NewUserRepository(newBrokenStore(), nil)

	_, err := repo.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInternal, appErr.Code)
}

func TestUserRepository_PersistsMappingByID(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	repo := NewUserRepository(store, nil)
	seedUsers(t, repo, newUser("u1", "alice", "a@x.com", 1))

	raw, err := store.Get(ctx, KeyUsers)
	require.NoError(t, err)

	var doc map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "u1")
	assert.Equal(t, "alice", doc["u1"]["username"])
	assert.Equal(t, []interface{}{}, doc["u1"]["followers"])
}
