package session

import (
	"sync"

	"github.com/boardview-ai/boardview/internal/domain"
)

// Store holds the active sessions keyed by user id. The engine is the only
// writer; the interface exists so the in-memory map can be swapped for a
// shared store without touching the state machine.
type Store interface {
	// Get returns the session for the user, or nil if none exists.
	Get(userID int64) *domain.Session

	// Set stores the session under its user id.
	Set(sess *domain.Session)

	// Delete removes the session for the user.
	Delete(userID int64)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*domain.Session)}
}

// Get returns the session for the user, or nil.
func (m *MemoryStore) Get(userID int64) *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// Set stores the session.
func (m *MemoryStore) Set(sess *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = sess
}

// Delete removes the session for the user.
func (m *MemoryStore) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
