package session

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Registry tracks the single active session per scope. Insertion is
// insert-if-absent so two interleaved round starts in one channel cannot
// both succeed.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.WithPrefix("registry"),
	}
}

// Insert registers a session for its scope, failing with ErrSessionExists
// if the scope already has an active round.
func (r *Registry) Insert(scope string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[scope]; exists {
		return ErrSessionExists
	}
	r.sessions[scope] = s
	r.logger.Debug("session registered", "scope", scope, "session", s.ID())
	return nil
}

// Get returns the active session for a scope.
func (r *Registry) Get(scope string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[scope]
	return s, ok
}

// Remove clears a scope's entry, but only if it still points at the given
// session; a newer round started after a terminal transition is left alone.
func (r *Registry) Remove(scope string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[scope]; ok && cur == s {
		delete(r.sessions, scope)
		r.logger.Debug("session cleared", "scope", scope, "session", s.ID())
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
