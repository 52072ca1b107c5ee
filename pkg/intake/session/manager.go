package session

import (
	"errors"
	"fmt"
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/intakeerr"

	"github.com/google/uuid"
)

// Store keeps live sessions and expires idle ones. Saving an existing session
// again refreshes its idle window.
type Store interface {
	Save(s *Session)
	// Touch refreshes the idle window only while s is still stored, and
	// reports whether it was.
	Touch(s *Session) bool
	Get(id string) (*Session, bool)
	Delete(id string)
}

type Manager struct {
	store  Store
	tokens *Tokens
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(store Store, tokens *Tokens, log logger.ILogger) *Manager {
	return &Manager{
		store:  store,
		tokens: tokens,
		logger: log,
		now:    time.Now,
	}
}

// Create issues a brand-new session.
func (m *Manager) Create() (*Session, error) {
	id := uuid.New()
	now := m.now()
	token, err := m.tokens.Issue(id, now)
	if err != nil {
		return nil, err
	}
	s := newSession(id, token, now)
	m.store.Save(s)

	m.logger.Info("SESSION", "Session created", map[string]interface{}{"session_id": id.String()})
	return s, nil
}

// Get resolves a token to its live session. Unknown, expired and forged
// tokens all yield ErrInvalidSession.
func (m *Manager) Get(token string) (*Session, error) {
	if token == "" {
		return nil, intakeerr.ErrInvalidSession
	}
	id, err := m.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", intakeerr.ErrInvalidSession, err)
	}
	s, ok := m.store.Get(id.String())
	if !ok || s.Token != token {
		return nil, intakeerr.ErrInvalidSession
	}
	return s, nil
}

// Open resumes the session behind token, or creates a fresh one when the
// token is missing or no longer valid. resumed tells which happened.
func (m *Manager) Open(token string) (s *Session, resumed bool, err error) {
	if token != "" {
		s, err = m.Get(token)
		if err == nil {
			// The session may expire between the lookup and the touch.
			if err = m.Do(s, func(*Tx) error { return nil }); err == nil {
				return s, true, nil
			}
		}
		if !errors.Is(err, intakeerr.ErrInvalidSession) {
			return nil, false, err
		}
		m.logger.Info("SESSION", "Token rejected, issuing a new session", map[string]interface{}{"reason": err.Error()})
	}
	s, err = m.Create()
	return s, false, err
}

// Alive reports whether s is still the live session under its id.
func (m *Manager) Alive(s *Session) bool {
	cur, ok := m.store.Get(s.ID.String())
	return ok && cur == s
}

// Do runs fn with the session locked. The lock is held only for fn, so
// callers must not make collaborator calls inside it. A session that expired
// in the meantime yields ErrInvalidSession and fn is not run, which is how
// late collaborator results get dropped.
func (m *Manager) Do(s *Session, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !m.Alive(s) || !m.store.Touch(s) {
		return intakeerr.ErrInvalidSession
	}
	s.lastActivityAt = m.now()
	return fn(&Tx{s: s})
}

// Reset clears the session state but keeps its token.
func (m *Manager) Reset(s *Session) error {
	return m.Do(s, func(tx *Tx) error {
		tx.Reset()
		return nil
	})
}

// Expire drops the session immediately. It waits for a running Do, so the
// session is never re-inserted behind it.
func (m *Manager) Expire(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.store.Delete(s.ID.String())
}
