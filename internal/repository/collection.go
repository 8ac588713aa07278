// Package repository provides typed access to the collections persisted in
// the key-value store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cliqd/internal/kvstore"
	"cliqd/internal/models"
	"cliqd/internal/observability"
)

// Logical keys of the persisted collections.
const (
	KeyUsers   = "users"
	KeyPosts   = "posts"
	KeySession = "session"
)

// collection owns one store key holding a JSON document of type T. All
// access goes through mu, so a mutation is a single load-modify-persist.
type collection[T any] struct {
	mu    sync.Mutex
	store kvstore.Store
	key   string
	log   *observability.RepoLogger

	// fallback builds the value used when the key is absent or undecodable.
	fallback func() T
	// materialize persists the fallback the first time it is used.
	materialize bool
	// onWrite runs under the lock after every successful persist.
	onWrite func(ctx context.Context, v T)
}

func newCollection[T any](store kvstore.Store, key string, fallback func() T) *collection[T] {
	return &collection[T]{
		store:    store,
		key:      key,
		log:      observability.NewRepoLogger(key),
		fallback: fallback,
	}
}

// load decodes the document. Callers must hold mu.
func (c *collection[T]) load(ctx context.Context) (T, error) {
	raw, err := c.store.Get(ctx, c.key)
	switch {
	case errors.Is(err, kvstore.ErrKeyNotFound):
		return c.useFallback(ctx)
	case err != nil:
		c.log.LogError(ctx, err, "read")
		var zero T
		return zero, models.NewInternalError(fmt.Errorf("read %s: %w", c.key, err))
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.LogDecodeFallback(ctx, err)
		return c.useFallback(ctx)
	}
	c.log.LogRead(ctx, map[string]interface{}{"bytes": len(raw)})
	return v, nil
}

func (c *collection[T]) useFallback(ctx context.Context) (T, error) {
	v := c.fallback()
	if !c.materialize {
		return v, nil
	}
	if err := c.persist(ctx, v); err != nil {
		var zero T
		return zero, err
	}
	c.log.LogCreate(ctx, map[string]interface{}{"seeded": true})
	return v, nil
}

// persist writes v as the full document. Callers must hold mu.
func (c *collection[T]) persist(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("encode %s: %w", c.key, err))
	}
	if err := c.store.Put(ctx, c.key, raw); err != nil {
		c.log.LogError(ctx, err, "write")
		return models.NewInternalError(fmt.Errorf("write %s: %w", c.key, err))
	}
	if c.onWrite != nil {
		c.onWrite(ctx, v)
	}
	return nil
}

// view loads the document under the lock and passes it to fn.
func (c *collection[T]) view(ctx context.Context, fn func(v T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.load(ctx)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

// update loads the document, lets fn modify it and persists it when fn
// reports a change. Nothing is written otherwise.
func (c *collection[T]) update(ctx context.Context, fn func(v *T) (bool, error)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	changed, err := fn(&v)
	if err != nil || !changed {
		return false, err
	}
	if err := c.persist(ctx, v); err != nil {
		return false, err
	}
	return true, nil
}
