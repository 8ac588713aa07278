// Package kvstore is the durable key-value byte store that every entity
// collection is persisted in. Backends: in-memory, SQL (SQLite or
// PostgreSQL through gorm) and Redis.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store
var ErrKeyNotFound = errors.New("key not found")

// Store defines the interface for key-value storage.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a copy of the value stored under key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. No error if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns all keys. Order is not guaranteed.
	List(ctx context.Context) ([]string, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// Stats contains statistics about the store
type Stats struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

// MemoryStore implements Store with an in-memory map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the value to prevent external modification.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Put stores a copy of value.
func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Delete removes a key-value pair
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// List returns all keys in the store
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys, nil
}

// Stats returns storage statistics
func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totalBytes := 0
	for _, value := range m.data {
		totalBytes += len(value)
	}
	return Stats{Keys: len(m.data), Bytes: totalBytes}, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
