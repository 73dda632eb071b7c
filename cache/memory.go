package cache

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

type memoryEntry struct {
	cachedAt int64
	value    []byte
}

// MemoryStore keeps entries in process. Used when redis is disabled and in tests.
type MemoryStore struct {
	cache *gocache.Cache
	lock  sync.Mutex
}

// NewMemoryStore creates a store whose entries never expire. A stale entry is
// still served while the upstream is failing, however old it is.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Get godoc
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	obj, found := s.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	return obj.(memoryEntry).value, nil
}

// Put godoc
func (s *MemoryStore) Put(_ context.Context, key string, cachedAt int64, value []byte) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if obj, found := s.cache.Get(key); found && obj.(memoryEntry).cachedAt > cachedAt {
		return false, nil
	}
	s.cache.Set(key, memoryEntry{cachedAt: cachedAt, value: value}, gocache.NoExpiration)
	return true, nil
}

// Delete godoc
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
