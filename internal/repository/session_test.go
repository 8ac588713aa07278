package repository

import (
	"context"
	"testing"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Load(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		stored     string
		expectedID string
	}{
		{"Absent", "", ""},
		{"Corrupt", `{"id":`, ""},
		{"Null", `null`, ""},
		{"Empty object", `{}`, ""},
		{"Valid", `{"id":"u1","username":"alice"}`, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := kvstore.NewMemoryStore()
			if tt.stored != "" {
				require.NoError(t, store.Put(ctx, KeySession, []byte(tt.stored)))
			}
			repo := NewSessionRepository(store)

			s, err := repo.Load(ctx)
			require.NoError(t, err)
			if tt.expectedID == "" {
				assert.Nil(t, s)
			} else {
				require.NotNil(t, s)
				assert.Equal(t, tt.expectedID, s.ID)
			}
		})
	}
}

func TestSessionRepository_SaveAndClear(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	repo := NewSessionRepository(store)

	session := &models.Session{ID: "u1", Username: "alice", Email: "a@x.com"}
	require.NoError(t, repo.Save(ctx, session))
	session.Username = "mutated"

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, repo.Clear(ctx))
	_, err = store.Get(ctx, KeySession)
	assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepository_StoreErrors(t *testing.T) {
	repo := NewSessionRepository(newBrokenStore())

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
	assert.ErrorIs(t, repo.Clear(context.Background()), errStoreDown)
}
