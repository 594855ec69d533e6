package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/shelf/internal/shared"
	"github.com/desertthunder/shelf/internal/store"
)

// DefaultKey is the storage key the token is persisted under.
const DefaultKey = "token"

// Session is the authenticated session state. It implements [services.TokenSource].
type Session struct {
	mu      sync.RWMutex
	token   string
	storage store.Storage
	key     string
}

// Open loads the persisted token from storage, if any.
func Open(ctx context.Context, storage store.Storage, key string) (*Session, error) {
	if key == "" {
		key = DefaultKey
	}

	token, ok, err := storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	s := &Session{storage: storage, key: key}
	if ok {
		s.token = token
	}
	return s, nil
}

// Token returns the current token; ok is false when no user is signed in.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// IsAuthenticated reports whether a non-empty token is present.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// Set persists token and then mirrors it in memory. On a storage failure the in-memory token is unchanged.
func (s *Session) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	s.token = token
	return nil
}

// Clear removes the persisted token and the in-memory mirror. Clearing an empty session is a no-op.
//
// The in-memory token is cleared even when storage fails, so the process stops sending it.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return nil
}
