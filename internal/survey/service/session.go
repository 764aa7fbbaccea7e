package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ============================================================
// Session
// ============================================================

// Session владеет одной съемкой и сериализует доступ к ней.
type Session struct {
	ID       string
	mu       sync.Mutex
	survey   *Survey
	lastSeen atomic.Int64
}

// Do выполняет fn под мьютексом сессии.
func (s *Session) Do(fn func(*Survey) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen.Store(time.Now().UnixNano())
	return fn(s.survey)
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// ============================================================
// Session Manager
// ============================================================

type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session // token -> session
	opts     Options
}

func NewSessionManager(opts Options) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Issue создает изолированную сессию с новой съемкой.
func (m *SessionManager) Issue() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := &Session{
		ID:     uuid.NewString(),
		survey: NewSurvey(m.opts),
	}
	sess.lastSeen.Store(time.Now().UnixNano())
	m.sessions[sess.ID] = sess
	return sess
}

func (m *SessionManager) Resolve(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	return sess, ok
}

func (m *SessionManager) Drop(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return false
	}
	delete(m.sessions, token)
	return true
}

// Sweep удаляет сессии, простаивающие дольше maxIdle.
func (m *SessionManager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for token, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
