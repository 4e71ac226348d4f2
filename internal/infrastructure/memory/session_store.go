package memory

import (
	"sync"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/session"
)

// SessionStore keeps the process-wide session behind a mutex. Reads hand out
// copies so callers cannot mutate the held state.
type SessionStore struct {
	mu      sync.RWMutex
	current *domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	clone := *s.current
	return &clone
}

func (s *SessionStore) Establish(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sess
}

func (s *SessionStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	s.current = nil
	return true
}
