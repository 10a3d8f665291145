// Package broker implements room-based fan-out over live connections.
//
// A room is a named broadcast channel. Connections join and leave rooms
// explicitly, except for the per-user room every connection is placed in
// on attach, which serves direct notification delivery. Publishing is
// fire-and-forget: there is no acknowledgment and no replay, and a
// connection that cannot keep up is dropped.
package broker

import (
	"log"
	"sync"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

// Sink receives encoded frames for one live connection. Send must not
// block; it reports false when the connection can no longer accept
// frames, at which point the broker detaches it.
type Sink interface {
	ID() string
	UserID() string
	Send(frame []byte) bool
}

// Broker routes published events to the connections joined to a room.
// Membership tables are guarded by a single RWMutex; the broker never
// performs I/O beyond handing frames to sinks.
type Broker struct {
	mu        sync.RWMutex
	conns     map[string]Sink            // connection id -> sink
	users     map[string]map[string]Sink // user id -> connection id -> sink
	rooms     map[string]map[string]Sink // room id -> connection id -> sink
	connRooms map[string]map[string]struct{}
}

func New() *Broker {
	return &Broker{
		conns:     make(map[string]Sink),
		users:     make(map[string]map[string]Sink),
		rooms:     make(map[string]map[string]Sink),
		connRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection and places it in its user's room.
// Attaching an already attached connection id is a no-op.
func (b *Broker) Attach(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.conns[s.ID()]; ok {
		return
	}
	b.conns[s.ID()] = s
	if b.users[s.UserID()] == nil {
		b.users[s.UserID()] = make(map[string]Sink)
	}
	b.users[s.UserID()][s.ID()] = s
	b.connRooms[s.ID()] = make(map[string]struct{})
}

// Detach removes the connection from every room and from its user room.
// Unknown connection ids are ignored.
func (b *Broker) Detach(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked(connID)
}

func (b *Broker) detachLocked(connID string) {
	s, ok := b.conns[connID]
	if !ok {
		return
	}
	delete(b.conns, connID)

	if conns := b.users[s.UserID()]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(b.users, s.UserID())
		}
	}

	for roomID := range b.connRooms[connID] {
		b.leaveLocked(connID, roomID)
	}
	delete(b.connRooms, connID)
}

// Join adds the connection to the room. Idempotent; unknown connections
// are ignored so a join racing a disconnect cannot resurrect state.
func (b *Broker) Join(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.conns[connID]
	if !ok {
		return
	}
	if b.rooms[roomID] == nil {
		b.rooms[roomID] = make(map[string]Sink)
	}
	b.rooms[roomID][connID] = s
	b.connRooms[connID][roomID] = struct{}{}
}

// Leave removes the connection from the room. Idempotent.
func (b *Broker) Leave(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(connID, roomID)
}

func (b *Broker) leaveLocked(connID, roomID string) {
	room := b.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(b.rooms, roomID)
	}
	if memberships := b.connRooms[connID]; memberships != nil {
		delete(memberships, roomID)
	}
}

// Publish delivers the event to every connection currently joined to the
// room. Connections joining afterwards never see this publication.
func (b *Broker) Publish(roomID, event string, payload any) error {
	frame, err := model.EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	b.mu.RLock()
	sinks := collect(b.rooms[roomID], "")
	b.mu.RUnlock()
	b.deliver(sinks, frame)
	return nil
}

// Relay is Publish minus one connection, used for typing indicators so
// the originator does not hear its own signal.
func (b *Broker) Relay(roomID, exceptConnID, event string, payload any) error {
	frame, err := model.EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	b.mu.RLock()
	sinks := collect(b.rooms[roomID], exceptConnID)
	b.mu.RUnlock()
	b.deliver(sinks, frame)
	return nil
}

// PublishToUser delivers the event to every live connection of the user,
// regardless of which chat rooms those connections joined.
func (b *Broker) PublishToUser(userID, event string, payload any) error {
	frame, err := model.EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	b.mu.RLock()
	sinks := collect(b.users[userID], "")
	b.mu.RUnlock()
	b.deliver(sinks, frame)
	return nil
}

// PublishAll delivers the event to every attached connection.
func (b *Broker) PublishAll(event string, payload any) error {
	frame, err := model.EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	b.mu.RLock()
	sinks := collect(b.conns, "")
	b.mu.RUnlock()
	b.deliver(sinks, frame)
	return nil
}

func collect(m map[string]Sink, except string) []Sink {
	if len(m) == 0 {
		return nil
	}
	sinks := make([]Sink, 0, len(m))
	for id, s := range m {
		if id == except {
			continue
		}
		sinks = append(sinks, s)
	}
	return sinks
}

// deliver hands the frame to each sink outside the membership lock. A
// sink refusing the frame is saturated or closed and gets detached.
func (b *Broker) deliver(sinks []Sink, frame []byte) {
	for _, s := range sinks {
		if !s.Send(frame) {
			log.Printf("broker: dropping slow connection %s (user %s)", s.ID(), s.UserID())
			b.Detach(s.ID())
		}
	}
}
