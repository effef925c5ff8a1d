package presence

// Session is the per-connection metadata tracked by the registry.
// RoomID is empty while the connection is not in any room.
type Session struct {
	ConnectionID string
	DisplayName  string
	RoomID       string
}

// InRoom reports whether the session is currently linked to a room.
func (s Session) InRoom() bool {
	return s.RoomID != ""
}

// Registry maps live connection identifiers to their session.
// It is not safe for concurrent use; the Coordinator serialises access.
type Registry struct {
	sessions map[string]Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Put inserts or replaces the session stored for connectionID.
func (r *Registry) Put(connectionID string, session Session) {
	session.ConnectionID = connectionID
	r.sessions[connectionID] = session
}

// Get returns the session for connectionID. Absence is an expected state for
// connections that never joined.
func (r *Registry) Get(connectionID string) (Session, bool) {
	s, ok := r.sessions[connectionID]
	return s, ok
}

// Remove deletes the session, if any.
func (r *Registry) Remove(connectionID string) {
	delete(r.sessions, connectionID)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
