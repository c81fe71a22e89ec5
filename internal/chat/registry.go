package chat

import (
	"sync"

	"community-chat-service/internal/models"
)

// Registry tracks which connections are subscribed to which channel rooms.
// A connection is in a room's set iff it has an outstanding join not yet
// matched by a leave or disconnect.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int]map[string]Subscriber
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: map[int]map[string]Subscriber{}}
}

// Join adds the subscriber to a room. Idempotent.
func (r *Registry) Join(roomID int, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = map[string]Subscriber{}
	}
	r.rooms[roomID][sub.ConnID()] = sub
}

// Leave removes a connection from a room. Idempotent.
func (r *Registry) Leave(roomID int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.rooms[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// DropConn removes a connection from every room it joined, as on disconnect.
func (r *Registry) DropConn(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID, conns := range r.rooms {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// Contains reports whether a connection currently subscribes to a room.
func (r *Registry) Contains(roomID int, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// Snapshot returns the room's subscribers at this instant. Broadcasts iterate
// the snapshot, so a connection leaving mid-broadcast either receives the
// event or does not; it never observes partial state.
func (r *Registry) Snapshot(roomID int) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.rooms[roomID]
	subs := make([]Subscriber, 0, len(conns))
	for _, sub := range conns {
		subs = append(subs, sub)
	}
	return subs
}

// Broadcast pushes an event to every current subscriber of a room, optionally
// excluding one connection (the sender of a typing indicator).
func (r *Registry) Broadcast(roomID int, ev models.ServerEvent, ephemeral bool, excludeConnID string) {
	for _, sub := range r.Snapshot(roomID) {
		if sub.ConnID() == excludeConnID {
			continue
		}
		sub.Send(ev, ephemeral)
	}
}
