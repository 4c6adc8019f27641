package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The scoring pipeline
// uses it to keep resolved directory entries hot: the historical store is
// never mutated after load, so cached entries only expire, never invalidate.
type Cache interface {
	// Get retrieves a value from cache. Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetDirectoryEntry retrieves a cached historical directory entry.
	GetDirectoryEntry(ctx context.Context, upiID string) (*DirectoryEntry, error)

	// SetDirectoryEntry caches a historical directory entry.
	SetDirectoryEntry(ctx context.Context, upiID string, entry *DirectoryEntry, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
