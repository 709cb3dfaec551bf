// Package registry maps (room, identity) to live transport connections.
package registry

import (
	"sync"

	"github.com/mcoot/partygames/internal/model"
)

// Conn is a live transport connection
type Conn interface {
	ID() string
	// Send queues a message, returning false if the connection cannot accept it
	Send(msg []byte) bool
	Close()
}

type key struct {
	room     model.RoomID
	identity string
}

// Registry tracks connections per identity, most recently bound first
type Registry struct {
	mu       sync.RWMutex
	bindings map[key][]Conn
	rooms    map[model.RoomID]map[string]struct{}
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		bindings: make(map[key][]Conn),
		rooms:    make(map[model.RoomID]map[string]struct{}),
	}
}

// Bind adds conn to the front of the identity's connection list. Binding an
// already bound connection moves it to the front.
func (r *Registry) Bind(roomID model.RoomID, identity string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{roomID, identity}
	conns := removeConn(r.bindings[k], conn.ID())
	r.bindings[k] = append([]Conn{conn}, conns...)

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][identity] = struct{}{}
}

// Resolve returns the most recently bound connection of the identity
func (r *Registry) Resolve(roomID model.RoomID, identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.bindings[key{roomID, identity}]
	if len(conns) == 0 {
		return nil, false
	}
	return conns[0], true
}

// Connections returns every connection of the identity, most recent first
func (r *Registry) Connections(roomID model.RoomID, identity string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Conn(nil), r.bindings[key{roomID, identity}]...)
}

// Unbind removes one connection and returns how many remain for the identity.
// The entry is pruned when none remain.
func (r *Registry) Unbind(roomID model.RoomID, identity string, connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{roomID, identity}
	conns := removeConn(r.bindings[k], connID)
	if len(conns) > 0 {
		r.bindings[k] = conns
		return len(conns)
	}
	r.dropLocked(k)
	return 0
}

// RemoveIdentity drops every binding of the identity and returns them
func (r *Registry) RemoveIdentity(roomID model.RoomID, identity string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{roomID, identity}
	conns := r.bindings[k]
	r.dropLocked(k)
	return conns
}

// RemoveRoom drops every binding in the room and returns them
func (r *Registry) RemoveRoom(roomID model.RoomID) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conns []Conn
	for identity := range r.rooms[roomID] {
		k := key{roomID, identity}
		conns = append(conns, r.bindings[k]...)
		delete(r.bindings, k)
	}
	delete(r.rooms, roomID)
	return conns
}

// RoomConnections returns every connection bound in the room
func (r *Registry) RoomConnections(roomID model.RoomID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for identity := range r.rooms[roomID] {
		conns = append(conns, r.bindings[key{roomID, identity}]...)
	}
	return conns
}

// Identities returns the identities with at least one live connection in the room
func (r *Registry) Identities(roomID model.RoomID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[roomID]))
	for identity := range r.rooms[roomID] {
		ids = append(ids, identity)
	}
	return ids
}

func (r *Registry) dropLocked(k key) {
	delete(r.bindings, k)
	if ids, ok := r.rooms[k.room]; ok {
		delete(ids, k.identity)
		if len(ids) == 0 {
			delete(r.rooms, k.room)
		}
	}
}

func removeConn(conns []Conn, id string) []Conn {
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		if c.ID() != id {
			out = append(out, c)
		}
	}
	return out
}
