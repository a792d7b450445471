package pricecache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map.
// This is suitable for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get retrieves an entry, lazily dropping it if expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if e.Expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have replaced it.
		if cur, ok := s.entries[key]; ok && cur.Expired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, nil
	}
	return e, nil
}

// Set stores an entry. The TTL is already baked into ExpiresAt; the
// parameter exists for backends with native expiry.
func (s *MemoryStore) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Clear removes all entries under the prefix.
func (s *MemoryStore) Clear(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
