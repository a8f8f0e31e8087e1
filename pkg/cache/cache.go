// Package cache stores derived viewer artifacts behind a small key/value
// interface.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for servers sharing one store, and [NullCache] when caching is off.
// Keys come from a [Keyer] so that every component hashes the same inputs
// the same way:
//
//	c, _ := cache.NewFileCache(cache.DefaultDir())
//	key := cache.NewDefaultKeyer().ArtifactKey(layoutHash, cache.ArtifactKeyOpts{Format: "svg"})
//	if data, hit, _ := c.Get(ctx, key); hit {
//	    return data
//	}
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry type.
const (
	TTLHTTP     = 6 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
	TTLSession  = 24 * time.Hour
)

// DefaultDir is the per-user cache directory, ~/.cache/macroviewer on Linux.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "macroviewer")
	}
	return filepath.Join(os.TempDir(), "macroviewer-cache")
}
