package auth

import "sync"

// Session holds the in-memory access token. The token is never persisted;
// only the refresh token ever touches disk. Safe for concurrent use: the
// reddit client reads it from request goroutines while the TUI loop writes
// it after a login or refresh.
type Session struct {
	mu    sync.Mutex
	token string
}

func NewSession() *Session {
	return &Session{}
}

// Token returns the current access token, empty when unauthenticated. Passes
// directly as a client token source.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear drops the access token, deactivating the session.
func (s *Session) Clear() {
	s.SetToken("")
}

// Active reports whether authenticated commands are currently legal.
func (s *Session) Active() bool {
	return s.Token() != ""
}
