// Package session holds the authenticated state of one API token: the token
// itself, the user it belongs to and the teardown hook run on forced logout.
package session

import (
	"sync"

	"rollcall/internal/model"
)

// Session implements apiclient.TokenSource.
type Session struct {
	mu      sync.RWMutex
	token   string
	user    *model.User
	cleared bool
	onClear []func()
}

func New(token string) *Session {
	return &Session{token: token}
}

// Token returns the bearer token, or "" once the session was cleared.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cleared {
		return ""
	}
	return s.token
}

func (s *Session) SetUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// User returns the cached profile, if /auth/me was already called.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// OnClear registers fn to run when the session is cleared.
func (s *Session) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Clear forgets the token and user and runs the teardown hooks once.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.cleared {
		s.mu.Unlock()
		return
	}
	s.cleared = true
	s.user = nil
	hooks := s.onClear
	s.onClear = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
