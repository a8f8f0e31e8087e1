// Package session persists viewer sessions.
//
// A session is one viewer's filter state under a UUID. The server keeps
// the live controller of each session in memory and writes the state
// through a [Store] after every action, so a reconnecting browser (or a
// restarted server) resumes the same view.
//
// Two backends are provided:
//   - [CacheStore]: any [cache.Cache] (file, redis) keyed by
//     [cache.Keyer.SessionKey], for the server
//   - [FileStore]: JSON files in a config directory, for the CLI
//
// # Usage
//
//	store := session.NewCacheStore(backend, nil)
//
//	sess := session.New(filter.Default(d), session.DefaultTTL)
//	store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // Session not found or expired
//	}
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/macroviewer/pkg/filter"
)

// Session stores one viewer's state.
type Session struct {
	ID        string       `json:"id"`
	State     filter.State `json:"state"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch records a new state and extends the expiry by ttl.
func (s *Session) Touch(state filter.State, ttl time.Duration) {
	now := time.Now()
	s.State = state.Clone()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (optional, may be no-op).
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the default session duration.
const DefaultTTL = 24 * time.Hour

// GenerateID creates a random session ID.
func GenerateID() string {
	return uuid.NewString()
}

// New creates a session holding state.
func New(state filter.State, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        GenerateID(),
		State:     state.Clone(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
