package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/macroviewer/pkg/cache"
)

// CacheStore keeps sessions in a [cache.Cache]. Entries carry the
// remaining session lifetime as backend TTL, so redis expires them on its
// own.
type CacheStore struct {
	backend cache.Cache
	keyer   cache.Keyer
}

// NewCacheStore wraps backend. A nil keyer uses [cache.DefaultKeyer].
func NewCacheStore(backend cache.Cache, keyer cache.Keyer) *CacheStore {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &CacheStore{backend: backend, keyer: keyer}
}

func (s *CacheStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.keyer.SessionKey(sessionID)
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.IsExpired() {
		_ = s.backend.Delete(ctx, key)
		return nil, nil
	}
	return &sess, nil
}

func (s *CacheStore) Set(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.backend.Set(ctx, s.keyer.SessionKey(sess.ID), data, ttl)
}

func (s *CacheStore) Delete(ctx context.Context, sessionID string) error {
	return s.backend.Delete(ctx, s.keyer.SessionKey(sessionID))
}

// Cleanup is a no-op: the backend expires entries by TTL.
func (s *CacheStore) Cleanup(ctx context.Context) error { return nil }

var _ Store = (*CacheStore)(nil)
