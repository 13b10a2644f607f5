package draftcache

import (
	"context"
	"sync"
)

// Store is the narrow key-value port the draft cache persists through.
// Implementations must make each call atomic; the cache performs no
// locking of its own.
type Store interface {
	// Get returns the stored value for key. The second return is false
	// when no value exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any prior value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the value under key. Removing a missing key is not
	// an error.
	Remove(ctx context.Context, key string) error
}

// MemStore is an in-memory Store. It backs unit tests and serves as the
// fallback when persistent storage is unavailable.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get returns the stored value for key
func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set writes value under key
func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Remove deletes the value under key
func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.values)
}
