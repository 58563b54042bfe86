// Package session persists checkout sessions between operator requests.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
)

const DefaultTTL = 2 * time.Hour

type Store interface {
	Save(ctx context.Context, s *checkout.Session) error
	// Load returns domain.ErrNotFound for unknown or expired sessions.
	Load(ctx context.Context, id string) (*checkout.Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. Sessions are stored encoded so
// callers never share a *checkout.Session.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Save(ctx context.Context, s *checkout.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{data: b, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*checkout.Session, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok && m.now().After(e.expires) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var s checkout.Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
