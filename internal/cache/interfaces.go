package cache

import (
	"context"
	"time"
)

// Cache stores serialized character rows keyed by game and name so reads
// skip the serialized connection. It is strictly read-through: writes to a
// character invalidate its entry, never populate it, because populated
// values must come from the durable row.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Close releases cache resources.
	Close() error
}

// CacheError is a sentinel error string for cache operations.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// CharacterKey builds the cache key for a character row.
func CharacterKey(game, name string) string {
	return "character:" + game + ":" + name
}
