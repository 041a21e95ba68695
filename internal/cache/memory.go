package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory is the fallback store when no redis address is configured, and
// the store used by tests. Expired entries are dropped lazily on read.
func NewMemory() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	ent, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !ent.expires.IsZero() && time.Now().After(ent.expires) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return ent.value, true, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ent := memoryEntry{value: value}
	if ttl > 0 {
		ent.expires = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = ent
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
