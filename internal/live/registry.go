package live

import "sync"

// Conn is a live connection handle as seen by the fan-out engine. Handles
// are only dereferenceable on the process that owns the socket.
type Conn interface {
	SessionID() string
	SendJSON(v interface{}) error
	SendBinary(data []byte) error
}

// Registry is the process-local session registry: session id -> connection
// handle, plus a session id -> room id index used by the audio path. It is
// a derived cache of reachability; the room document stays authoritative
// for membership.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
	rooms map[string]string
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		rooms: make(map[string]string),
	}
}

// Add registers a connection handle under its session id.
func (r *Registry) Add(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.SessionID()] = c
}

// Bind associates a session with a room for direct sender -> room resolution.
func (r *Registry) Bind(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[sessionID] = roomID
}

// Get returns the handle for a session id, if this process owns it.
func (r *Registry) Get(sessionID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[sessionID]
	return c, ok
}

// RoomOf returns the room a session is bound to.
func (r *Registry) RoomOf(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.rooms[sessionID]
	return roomID, ok
}

// Remove drops a session's handle and room binding.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sessionID)
	delete(r.rooms, sessionID)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
