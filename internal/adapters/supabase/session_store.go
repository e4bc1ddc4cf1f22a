package supabase

import (
	"context"
	"sync"

	"github.com/okian/locapi/internal/domain/model"
)

// SessionStore keeps the current session between requests.
type SessionStore interface {
	Load(ctx context.Context, key string) (*model.Session, error)
	Save(ctx context.Context, key string, s *model.Session) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process memory. Every request served by the
// process sees the same session.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

// Load returns a copy of the stored session, or nil.
func (m *MemoryStore) Load(_ context.Context, key string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, key string, s *model.Session) error {
	if s == nil {
		return m.Remove(context.Background(), key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	return nil
}

// Remove forgets the session under key.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
