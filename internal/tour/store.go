package tour

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"

	"tour-planner/internal/database"
)

// SessionStore manages active planning sessions in memory
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	tours    database.TourRepository
}

// NewSessionStore creates a new session store backed by the given
// tour repository
func NewSessionStore(tours database.TourRepository) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		tours:    tours,
	}
}

// Create starts a fresh planning session for the given owner
func (st *SessionStore) Create(ownerID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := generateSessionID()
	session := NewSession(id, ownerID, st.tours)
	st.sessions[id] = session

	log.Printf("[SESSION] Created session: id=%s owner=%s", id, ownerID)
	return session
}

// Get retrieves a session by ID, nil if it does not exist
func (st *SessionStore) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Delete removes a session from the store
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
	log.Printf("[SESSION] Deleted session: id=%s", id)
}

// generateSessionID creates a random session identifier
func generateSessionID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
