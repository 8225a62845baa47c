package server

import "sync"

// Registry is the shared directory of currently connected sessions,
// keyed by connection id. All methods are safe for concurrent use.
//
// Delivery traversals work on a point-in-time snapshot taken under the
// lock, so connect/disconnect churn never serializes behind a broadcast
// and one broadcast call never skips or duplicates a session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add inserts a session. A second add under the same connection id
// replaces the first; connection ids are random, so in practice this
// does not happen.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ConnectionID()] = s
}

// Remove deletes the session with the given connection id. Removing an
// absent id is a no-op, which keeps session teardown idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Snapshot returns a point-in-time copy of all sessions, safe to
// iterate without holding the registry lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// FindByUser returns the first session bound to userID, or nil. When a
// user is logged in from more than one connection the choice between
// them is map-iteration order, i.e. deliberately unspecified.
func (r *Registry) FindByUser(userID string) *Session {
	if userID == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.UserID() == userID {
			return s
		}
	}
	return nil
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
