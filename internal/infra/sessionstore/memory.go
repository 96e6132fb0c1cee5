package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

type entry struct {
	session   conductor.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory for tests/dev. Expiry
// mirrors the Valkey store: an expired session is simply not found.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	now      func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Save implements conductor.SessionStore.
func (s *MemoryStore) Save(_ context.Context, session conductor.Session, ttl time.Duration) error {
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.sessions[session.ID] = entry{session: session, expiresAt: exp}
	s.mu.Unlock()
	return nil
}

// Get implements conductor.SessionStore.
func (s *MemoryStore) Get(_ context.Context, id string) (conductor.Session, bool, error) {
	s.mu.RLock()
	record, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return conductor.Session{}, false, nil
	}
	if !record.expiresAt.IsZero() && record.expiresAt.Before(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return conductor.Session{}, false, nil
	}
	return record.session, true, nil
}

// Delete implements conductor.SessionStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

var _ conductor.SessionStore = (*MemoryStore)(nil)
