package crm

import (
	"context"
	"sync"
	"time"
)

// SessionCache caches a CRM session handle for a TTL so that every sync job
// does not re-authenticate. It is safe for concurrent use.
type SessionCache struct {
	client   Client
	username string
	password string
	ttl      time.Duration

	mu        sync.Mutex
	session   SessionID
	fetchedAt time.Time
}

// NewSessionCache builds a cache around the given client and credentials.
func NewSessionCache(client Client, username, password string, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionCache{
		client:   client,
		username: username,
		password: password,
		ttl:      ttl,
	}
}

// Get returns the cached session, authenticating if the cache is empty or
// past its TTL. The returned handle may still have been invalidated remotely;
// callers validate it and call Refresh on failure.
func (s *SessionCache) Get(ctx context.Context) (SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != "" && time.Since(s.fetchedAt) < s.ttl {
		return s.session, nil
	}
	return s.refreshLocked(ctx)
}

// Refresh discards the cached session and authenticates again.
func (s *SessionCache) Refresh(ctx context.Context) (SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = ""
	return s.refreshLocked(ctx)
}

func (s *SessionCache) refreshLocked(ctx context.Context) (SessionID, error) {
	sid, err := s.client.Authenticate(ctx, s.username, s.password)
	if err != nil {
		return "", err
	}
	s.session = sid
	s.fetchedAt = time.Now()
	return sid, nil
}
