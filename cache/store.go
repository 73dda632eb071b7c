package cache

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a Store for keys without an entry
var ErrNotFound = errors.New("cache entry not found")

// Store is the keyed storage behind the cache. Each operation is atomic per key.
type Store interface {
	// Get the raw entry of key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value stamped with cachedAt unless the stored stamp is newer.
	// It reports whether the value was written.
	Put(ctx context.Context, key string, cachedAt int64, value []byte) (bool, error)
	// Delete the entry of key
	Delete(ctx context.Context, key string) error
}
