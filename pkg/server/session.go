package server

import (
	"sort"
	"sync"
	"sync/atomic"
)

// lineConn is the transport seam between a session and its connection.
// TCP connections (SafeConn) and WebSocket connections (wsConn) both carry
// whole reply lines; reads stay transport-specific in their own loops.
type lineConn interface {
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Session represents one active client connection and its authentication
// state. The identity slot transitions nil → *User on login and back to nil
// on logout; the session itself is removed from the manager when the
// connection closes.
type Session struct {
	ID         uint64
	Conn       lineConn
	RemoteAddr string

	mu   sync.RWMutex
	user *User
}

// User returns the authenticated identity, or nil for anonymous sessions.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setUser(user *User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

// SessionManager owns the live-session table. Sessions are added on accept
// and removed on termination; IDs are allocated from an atomic counter, so
// ascending ID order is accept order.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	nextID   uint64
	metrics  *Metrics
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[uint64]*Session),
		nextID:   1,
	}
}

// SetMetrics attaches metrics to the session manager.
func (sm *SessionManager) SetMetrics(metrics *Metrics) {
	sm.metrics = metrics
}

// CreateSession registers a new session for the given connection.
func (sm *SessionManager) CreateSession(conn lineConn) *Session {
	sessionID := atomic.AddUint64(&sm.nextID, 1) - 1

	sess := &Session{
		ID:         sessionID,
		Conn:       conn,
		RemoteAddr: conn.RemoteAddr(),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = sess
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
		sm.metrics.RecordSessionCreated()
	}

	return sess
}

// GetSession returns a session by ID.
func (sm *SessionManager) GetSession(sessionID uint64) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.sessions[sessionID]
	return sess, ok
}

// GetAllSessions returns the live sessions in accept order.
func (sm *SessionManager) GetAllSessions() []*Session {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		sessions = append(sessions, sess)
	}
	sm.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

// RemoveSession removes a session and closes its connection. Removing an
// unknown ID is a no-op, so teardown paths may race safely.
func (sm *SessionManager) RemoveSession(sessionID uint64) {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sessionID)
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
		sm.metrics.RecordSessionDisconnected()
	}

	sess.Conn.Close()
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CloseAll closes every session. Used during shutdown.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, sess := range sm.sessions {
		sess.Conn.Close()
	}
	sm.sessions = make(map[uint64]*Session)
}
