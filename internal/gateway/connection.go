package gateway

import (
	"sync"

	"socket-gateway/internal/models"
)

// Connection is the session state of one live socket.
type Connection struct {
	ID          string
	Application string
	Connected   bool

	// RoomChannel is the room this connection currently belongs to, empty
	// when it is in none. A connection is in at most one room at a time.
	RoomChannel string

	AccessToken  string
	RefreshToken string
	UserType     models.UserType

	// CoursesSent flips to true once the zone course list has been pushed to
	// this socket for its current room tenure. Reset on room change and on
	// token rotation.
	CoursesSent bool
}

// ConnectionUpdate is a merge patch for a Connection. Nil fields are left
// untouched; a pointer to the zero value clears the field. Handlers must go
// through this patch shape so that concurrent partial updates of disjoint
// fields compose instead of overwriting each other.
type ConnectionUpdate struct {
	Application  *string
	Connected    *bool
	RoomChannel  *string
	AccessToken  *string
	RefreshToken *string
	UserType     *models.UserType
	CoursesSent  *bool
}

// ConnectionRegistry is the in-memory session store, keyed by socket id.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[string]*Connection)}
}

// Get returns a copy of the session, so callers never hold a reference into
// the registry.
func (r *ConnectionRegistry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Update merges the patch into the existing session, inserting a fresh entry
// when none exists. Entries are never replaced wholesale.
func (r *ConnectionRegistry) Update(id string, patch ConnectionUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		conn = &Connection{ID: id}
		r.conns[id] = conn
	}

	if patch.Application != nil {
		conn.Application = *patch.Application
	}
	if patch.Connected != nil {
		conn.Connected = *patch.Connected
	}
	if patch.RoomChannel != nil {
		conn.RoomChannel = *patch.RoomChannel
	}
	if patch.AccessToken != nil {
		conn.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		conn.RefreshToken = *patch.RefreshToken
	}
	if patch.UserType != nil {
		conn.UserType = *patch.UserType
	}
	if patch.CoursesSent != nil {
		conn.CoursesSent = *patch.CoursesSent
	}
}

// Remove deletes the session outright.
func (r *ConnectionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// Len returns the number of live sessions.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func ptr[T any](v T) *T {
	return &v
}
