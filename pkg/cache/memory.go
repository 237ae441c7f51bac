package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached value with its expiry time.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore implements Store using an in-memory map with lazy TTL expiry.
// Expired entries are removed on read; there is no background sweeper, so
// memory is bounded by the working set of live keys plus not-yet-read
// expired ones.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	closed  bool
	now     func() time.Time
}

// Ensure MemoryStore implements the Store interface.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get retrieves the value for key. Returns (nil, nil) when the key is absent
// or its TTL has elapsed; an expired entry is deleted on the way out.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}

	return e.value, nil
}

// Set stores value under key. A non-positive TTL stores an already-expired
// entry, which the next Get removes.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.entries[key] = entry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Close marks the store closed and drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// Len reports the number of stored entries, including expired ones not yet
// collected. Intended for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
