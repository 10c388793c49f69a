package geoip

import (
	"sync"
	"time"
)

// Store is the shared key-value cache behind Cache. It must be safe for
// concurrent use; an external atomic store can be substituted for MemoryStore.
type Store interface {
	Get(key string) (Location, bool)
	Set(key string, loc Location, ttl time.Duration)
}

type storeEntry struct {
	loc     Location
	expires time.Time
}

const defaultMaxEntries = 100000

// MemoryStore is an in-process Store with per-entry expiry and a size bound.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]storeEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore returns a store holding at most maxEntries keys; zero or
// less selects the default bound.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]storeEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the unexpired value stored under key.
func (s *MemoryStore) Get(key string) (Location, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expires) {
		return Location{}, false
	}
	return e.loc, true
}

// Set stores loc under key for ttl.
func (s *MemoryStore) Set(key string, loc Location, ttl time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evict(now)
	}
	s.entries[key] = storeEntry{loc: loc, expires: now.Add(ttl)}
}

// Len returns the number of stored keys, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evict drops expired keys, then about a quarter of the remaining ones if
// still full. Map iteration order is random, so the second step is random
// eviction. Caller must hold the write lock.
func (s *MemoryStore) evict(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	if len(s.entries) < s.maxEntries {
		return
	}
	target := s.maxEntries / 4
	if target == 0 {
		target = 1
	}
	for k := range s.entries {
		if target == 0 {
			break
		}
		delete(s.entries, k)
		target--
	}
}
