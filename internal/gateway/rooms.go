package gateway

import (
	"strings"
	"sync"
)

// IsZoneRoom reports whether a room name follows the public zone convention.
// Zone channels are UUIDs (they contain hyphens); private ride channels are
// database object ids and never do.
func IsZoneRoom(name string) bool {
	return strings.Contains(name, "-")
}

// RoomRegistry maps room names to their members in insertion order. Rooms are
// created lazily on first join and never destroyed; an empty member list is a
// harmless leftover since the room count is bounded by active sessions.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string][]string
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string][]string)}
}

// AddMember appends the connection to the room unless it is already there.
func (r *RoomRegistry) AddMember(room, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, member := range r.rooms[room] {
		if member == id {
			return
		}
	}
	r.rooms[room] = append(r.rooms[room], id)
}

// Members returns a snapshot of the room's member ids.
func (r *RoomRegistry) Members(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// RemoveByID scans every room and removes the connection from whichever
// contains it (at most one by invariant). It returns the room the connection
// was removed from, or false when it was in none.
func (r *RoomRegistry) RemoveByID(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room, members := range r.rooms {
		for i, member := range members {
			if member == id {
				r.rooms[room] = append(members[:i], members[i+1:]...)
				return room, true
			}
		}
	}
	return "", false
}
