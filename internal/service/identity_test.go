package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"cliqd/internal/models"
	"cliqd/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func strPtr(s string) *string { return &s }

func TestIdentityService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.identity.Register(ctx, "Alice", "alice@x.com", "secret1", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, AvatarURL("alice"), session.Avatar)
	assert.Equal(t, "https://api.dicebear.com/7.x/shapes/svg?seed=alice", session.Avatar)

	current, state := env.session.Current()
	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, session.ID, current.ID)

	stored, err := env.users.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))
	assert.Empty(t, stored.Followers)
	assert.NotNil(t, stored.Followers)
	assert.NotZero(t, stored.CreatedAt)
}

func TestIdentityService_RegisterDuplicates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		username string
		expected error
	}{
		{"Same email", "alice@x.com", "alice2", models.ErrDuplicateEmail},
		{"Same username", "other@x.com", "alice", models.ErrDuplicateUsername},
		{"Both taken reports email", "alice@x.com", "alice", models.ErrDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			first := env.register(t, "Alice", "alice@x.com", "alice")

			_, err := env.identity.Register(ctx, "Second", tt.email, "secret1", tt.username)
			assert.ErrorIs(t, err, tt.expected)

			all, err := env.users.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1, "no second record is created")

			current, _ := env.session.Current()
			assert.Equal(t, first.ID, current.ID, "the failed attempt does not sign in")
		})
	}
}

func TestIdentityService_RegisterIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice@x.com", "alice")

	_, err := env.identity.Register(context.Background(), "Alice", "ALICE@x.com", "secret1", "Alice")
	assert.NoError(t, err)
}

func TestIdentityService_ConcurrentRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.identity.Register(ctx, "Alice", "alice@x.com", "secret1", fmt.Sprintf("alice%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrDuplicateEmail):
				dupes++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)

	all, err := env.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIdentityService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "Alice", "alice@x.com", "alice")
	require.NoError(t, env.identity.Logout(ctx))

	t.Run("Success", func(t *testing.T) {
		session, err := env.identity.Authenticate(ctx, "alice@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, session.ID)
		assert.Equal(t, StateAuthenticated, env.session.State())
		require.NoError(t, env.identity.Logout(ctx))
	})

	t.Run("Failures are indistinguishable", func(t *testing.T) {
		_, wrongPassword := env.identity.Authenticate(ctx, "alice@x.com", "nope")
		_, unknownEmail := env.identity.Authenticate(ctx, "bob@x.com", "secret1")

		assert.ErrorIs(t, wrongPassword, models.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, models.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.Equal(t, StateAnonymous, env.session.State())
	})

	t.Run("Imported plaintext credential", func(t *testing.T) {
		legacy := map[string]models.User{
			"u-legacy": {ID: "u-legacy", Email: "demo@cliqd.com", Username: "demouser", Password: "demo1234"},
		}
		data, err := json.Marshal(legacy)
		require.NoError(t, err)
		require.NoError(t, env.store.Put(ctx, repository.KeyUsers, data))

		session, err := env.identity.Authenticate(ctx, "demo@cliqd.com", "demo1234")
		require.NoError(t, err)
		assert.Equal(t, "u-legacy", session.ID)

		_, err = env.identity.Authenticate(ctx, "demo@cliqd.com", "demo12345")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})
}

func TestPasswordMatches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		stored   string
		given    string
		expected bool
	}{
		{"Hash match", string(hash), "secret1", true},
		{"Hash mismatch", string(hash), "secret2", false},
		{"Plaintext match", "demo1234", "demo1234", true},
		{"Plaintext mismatch", "demo1234", "demo", false},
		{"Empty given", "demo1234", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, passwordMatches(tt.stored, tt.given))
		})
	}
}

func TestIdentityService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges only provided fields", func(t *testing.T) {
		env := newTestEnv(t)
		me := env.register(t, "Alice", "alice@x.com", "alice")

		session, err := env.identity.UpdateProfile(ctx, me.ID, models.ProfilePatch{Bio: strPtr("hello")})
		require.NoError(t, err)
		assert.Equal(t, "hello", session.Bio)
		assert.Equal(t, "Alice", session.Name)

		stored, err := env.users.GetByID(ctx, me.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", stored.Bio)
		assert.Equal(t, me.Avatar, stored.Avatar)

		current, _ := env.session.Current()
		assert.Equal(t, "hello", current.Bio)
	})

	t.Run("Requires the owner", func(t *testing.T) {
		env := newTestEnv(t)
		other := env.account(t, "Bob", "bob")
		env.register(t, "Alice", "alice@x.com", "alice")

		_, err := env.identity.UpdateProfile(ctx, other.ID, models.ProfilePatch{Name: strPtr("Hacked")})
		assert.ErrorIs(t, err, models.ErrForbidden)

		require.NoError(t, env.identity.Logout(ctx))
		_, err = env.identity.UpdateProfile(ctx, other.ID, models.ProfilePatch{Name: strPtr("Hacked")})
		assert.ErrorIs(t, err, models.ErrUnauthenticated)

		stored, _ := env.users.GetByID(ctx, other.ID)
		assert.Equal(t, "Bob", stored.Name)
	})

	t.Run("Missing record still updates the session", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, &models.User{ID: "ghost", Name: "Ghost", Username: "ghost"})

		session, err := env.identity.UpdateProfile(ctx, "ghost", models.ProfilePatch{
			Name:       strPtr("Casper"),
			CoverPhoto: strPtr("data:image/png;base64,AAAA"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Casper", session.Name)
		assert.Equal(t, "data:image/png;base64,AAAA", session.CoverPhoto)

		all, err := env.users.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestIdentityService_Refresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.identity.Refresh(ctx)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	me := env.register(t, "Alice", "alice@x.com", "alice")
	_, err = env.users.UpdateProfile(ctx, me.ID, models.ProfilePatch{Name: strPtr("Alice Liddell")})
	require.NoError(t, err)

	stale, _ := env.session.Current()
	assert.Equal(t, "Alice", stale.Name)

	session, err := env.identity.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", session.Name)
}

func TestIdentityService_Find(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.account(t, "Bob", "bob")

	found, err := env.identity.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	found, err = env.identity.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", found.Username)

	found, err = env.identity.FindByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, found)

	found, err = env.identity.FindByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestIdentityService_CreateAccountKeepsAvatar(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.identity.CreateAccount(context.Background(), AccountInput{
		Name: "Demo", Email: "demo@cliqd.com", Username: "demouser", Password: "demo1234",
		Avatar: "https://example.com/a.png", Bio: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", u.Avatar)
	assert.True(t, strings.HasPrefix(u.Password, "$2"))
	assert.Equal(t, StateAnonymous, env.session.State())
}
