package flash

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-replica fallback used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Put(_ context.Context, key string, e Entry) error {
	if key == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.entries {
		if now.After(v.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{entry: e, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, key string) (Entry, bool, error) {
	if key == "" {
		return Entry{}, false, errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	delete(s.entries, key)
	if s.now().After(v.expires) {
		return Entry{}, false, nil
	}
	return v.entry, true, nil
}
