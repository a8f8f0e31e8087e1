package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matzehuels/macroviewer/pkg/cache"
)

// ErrExpired is returned by [Cache.Get] together with the stored snapshot
// when the snapshot is older than the TTL. The snapshot is still usable as
// a last-known-good fallback and for a conditional request.
var ErrExpired = errors.New("cache entry expired")

// Snapshot is one fetched response body with its validators.
type Snapshot struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Body         []byte    `json:"body"`
}

// Age is the time since the snapshot was fetched.
func (s Snapshot) Age() time.Duration { return time.Since(s.FetchedAt) }

// Cache keeps fetched snapshots in a [cache.Cache]. Entries are stored
// without backend expiry, so an expired snapshot remains available as a
// fallback when the source is down; freshness is judged by FetchedAt.
//
// Use [Cache.Namespace] to keep sources apart:
//
//	snapshots := httputil.NewCache(backend, 6*time.Hour).Namespace("dataset")
type Cache struct {
	backend cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	prefix  string
}

// NewCache wraps backend. A nil backend disables caching; a zero ttl
// means snapshots never expire.
func NewCache(backend cache.Cache, ttl time.Duration) *Cache {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Cache{backend: backend, keyer: cache.NewDefaultKeyer(), ttl: ttl}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the snapshot for key.
//
//   - (s, true, nil): fresh hit
//   - (s, true, ErrExpired): stale hit, s is the last known good copy
//   - (_, false, nil): miss
//   - (_, false, err): backend or decode failure
func (c *Cache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	data, ok, err := c.backend.Get(ctx, c.key(key))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, err
	}
	if c.ttl > 0 && s.Age() > c.ttl {
		return s, true, ErrExpired
	}
	return s, true, nil
}

// Set stores s under key.
func (c *Cache) Set(ctx context.Context, key string, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, c.key(key), data, 0)
}

// Namespace returns a view whose keys are prefixed with prefix.
// Namespaces nest: Namespace("a").Namespace("b") uses "a:b".
func (c *Cache) Namespace(prefix string) *Cache {
	p := prefix
	if c.prefix != "" {
		p = c.prefix + ":" + prefix
	}
	return &Cache{backend: c.backend, keyer: c.keyer, ttl: c.ttl, prefix: p}
}

func (c *Cache) key(key string) string { return c.keyer.HTTPKey(c.prefix, key) }
