package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// SessionStore implements domain.SessionStore for the single actor of the
// process.
type SessionStore struct {
	mu    sync.Mutex
	actor *domain.Actor
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Get returns a copy of the current actor, or domain.ErrNoSession.
func (s *SessionStore) Get(_ context.Context) (domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actor == nil {
		return domain.Actor{}, domain.ErrNoSession
	}
	return s.actor.Clone(), nil
}

// Create installs actor as the session. Only one session may exist.
func (s *SessionStore) Create(_ context.Context, actor domain.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actor != nil {
		return fmt.Errorf("memory: create session: %w", domain.ErrAlreadyExists)
	}
	a := actor.Clone()
	s.actor = &a
	return nil
}

// Update applies fn to the stored actor under the lock. If fn returns an
// error the actor is left unchanged.
func (s *SessionStore) Update(_ context.Context, fn func(*domain.Actor) error) (domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actor == nil {
		return domain.Actor{}, domain.ErrNoSession
	}
	next := s.actor.Clone()
	if err := fn(&next); err != nil {
		return s.actor.Clone(), err
	}
	s.actor = &next
	return next.Clone(), nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
