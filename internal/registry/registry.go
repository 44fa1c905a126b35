// Package registry tracks live push connections and their room memberships.
// It is the single piece of mutable shared state on the server: identity and
// rooms are only ever changed through Add, Register, JoinRoom and Remove, and
// room membership is a view derived from registered connections.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"classwire/pkg/types"
)

// Sender is the write half of a live connection. The registry never reads
// from connections; it only hands senders out for fan-out.
type Sender interface {
	WriteJSON(v any) error
}

type connection struct {
	sender      Sender
	userID      string
	role        string
	rooms       map[string]struct{}
	connectedAt time.Time
}

// Registry is the authoritative map from connection id to identity and rooms.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[string]map[string]struct{} // room name -> set of connection ids
	log   *slog.Logger
}

func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		conns: make(map[string]*connection),
		rooms: make(map[string]map[string]struct{}),
		log:   log,
	}
}

// Add records a freshly connected, not yet registered connection. An
// unregistered connection belongs to no room and receives nothing.
func (r *Registry) Add(connID string, sender Sender) error {
	if sender == nil {
		return ErrNilSender
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return ErrDuplicateConnection
	}
	r.conns[connID] = &connection{
		sender:      sender,
		rooms:       make(map[string]struct{}),
		connectedAt: time.Now(),
	}
	return nil
}

// Register binds a connection to a user identity and role and joins it to the
// role's broadcast room. Instructors additionally join their identity-scoped
// room. Ineligible roles are rejected: the connection stays live but stays
// un-routable.
func (r *Registry) Register(connID, userID, role string) error {
	if err := (types.Registration{UserID: userID, Role: role}).Validate(); err != nil {
		return err
	}
	if !types.IsEligibleRole(role) {
		return ErrIneligibleRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return ErrUnknownConnection
	}

	conn.userID = userID
	conn.role = role

	switch role {
	case types.RoleAdmin:
		r.join(connID, conn, types.RoomAdmins)
	case types.RoleInstructor:
		r.join(connID, conn, types.RoomInstructors)
		r.join(connID, conn, types.InstructorRoom(userID))
	}

	r.log.Info("connection registered",
		"conn_id", connID, "user_id", userID, "role", role)
	return nil
}

// JoinRoom adds a registered connection to a room. Joining a room the
// connection is already in has no effect.
func (r *Registry) JoinRoom(connID, room string) error {
	if room == "" {
		return ErrEmptyRoomName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return ErrUnknownConnection
	}
	if conn.role == "" {
		return ErrNotRegistered
	}

	r.join(connID, conn, room)
	return nil
}

// join assumes r.mu is held.
func (r *Registry) join(connID string, conn *connection, room string) {
	if _, member := conn.rooms[room]; member {
		return
	}
	conn.rooms[room] = struct{}{}
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][connID] = struct{}{}
}

// Remove strips the connection from every room and drops its entry. Safe to
// call for connections that never completed registration, and idempotent.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return
	}

	for room := range conn.rooms {
		members := r.rooms[room]
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(r.conns, connID)
}

// MembersOf returns the senders currently in a room. The slice is a snapshot:
// delivery to it is best-effort with respect to concurrent disconnects. An
// unknown or empty room yields nil.
func (r *Registry) MembersOf(room string) []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	senders := make([]Sender, 0, len(members))
	for connID := range members {
		senders = append(senders, r.conns[connID].sender)
	}
	return senders
}

// Identity reports the registered identity of a connection. ok is false for
// unknown or not yet registered connections.
func (r *Registry) Identity(connID string) (userID, role string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists || conn.role == "" {
		return "", "", false
	}
	return conn.userID, conn.role, true
}

// Stats returns per-room member counts plus the total connection count,
// registered or not.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := lo.MapValues(r.rooms, func(members map[string]struct{}, _ string) int {
		return len(members)
	})
	stats["connections"] = len(r.conns)
	return stats
}
