package memory

import (
	"sync"

	"linkletter-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Gate sessions are deliberately not persisted anywhere else: a reload
// restarts the quiz from question 0 with a fresh attempt budget.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.GateSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.GateSession),
	}
}

func (s *SessionStore) Create(session *app.GateSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.GateSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
