package adapters

import (
	"sync"

	"github.com/hooshyar/peyvand/domain/repositories"
)

// MemorySessionStore is a production-ready in-memory implementation of
// SessionStore. Tokens live for the lifetime of the process; after a restart
// the backend treats the next message of every conversation as a new session.
type MemorySessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string // conversation id -> session token
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		tokens: make(map[string]string),
	}
}

// Ensure MemorySessionStore implements the SessionStore interface
var _ repositories.SessionStore = (*MemorySessionStore)(nil)

// Get returns the session token for a conversation, if one was captured
func (m *MemorySessionStore) Get(conversationID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, exists := m.tokens[conversationID]
	return token, exists
}

// Set stores or overwrites the session token for a conversation. Tokens are
// only ever replaced, never removed.
func (m *MemorySessionStore) Set(conversationID string, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[conversationID] = token
}
