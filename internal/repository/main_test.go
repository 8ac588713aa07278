package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"cliqd/internal/kvstore"
)

// countingStore records writes so tests can assert that nothing was persisted.
type countingStore struct {
	*kvstore.MemoryStore
	puts atomic.Int64
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (s *countingStore) Put(ctx context.Context, key string, value []byte) error {
	s.puts.Add(1)
	return s.MemoryStore.Put(ctx, key, value)
}

// brokenStore fails every read and write.
type brokenStore struct {
	*kvstore.MemoryStore
}

var errStoreDown = errors.New("store unavailable")

func newBrokenStore() brokenStore {
	return brokenStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (brokenStore) Put(context.Context, string, []byte) error   { return errStoreDown }
func (brokenStore) Delete(context.Context, string) error        { return errStoreDown }
