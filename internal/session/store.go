package session

import (
	"context"
	"sync"
	"time"
)

// Store owns sessions between turns.
type Store interface {
	// GetOrCreate returns the stored session or a new START session for id.
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	// Update refreshes LastUpdated and upserts the session.
	Update(ctx context.Context, s *Session) error
	// Remove deletes the session; removing a missing id is not an error.
	Remove(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in a mutex-guarded map. Callers always receive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s.Clone(), nil
	}
	s := New(id, m.now())
	m.sessions[id] = s
	return s.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, s *Session) error {
	s.LastUpdated = m.now()
	m.mu.Lock()
	m.sessions[s.ID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than idle and returns how many were removed.
func (m *MemoryStore) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastUpdated) > idle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
