package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rish4987/chat-app-backend/pkg/auth"
	"github.com/rish4987/chat-app-backend/pkg/broker"
	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/presence"
	"github.com/rish4987/chat-app-backend/pkg/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum event size allowed from peer. Message bodies travel over
	// REST; the socket only carries small control events.
	maxEventSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

type gateway struct {
	auth     *auth.Manager
	reg      registry.Registry
	rooms    *broker.Broker
	presence *presence.Publisher
}

func newGateway(authMgr *auth.Manager, reg registry.Registry, rooms *broker.Broker, pub *presence.Publisher) *gateway {
	return &gateway{auth: authMgr, reg: reg, rooms: rooms, presence: pub}
}

// client is the middleman between one websocket connection and the room
// broker. It implements broker.Sink.
type client struct {
	id     string
	userID string

	gw   *gateway
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// set after a successful setup event; only touched by readPump.
	ready bool
}

func (c *client) ID() string     { return c.id }
func (c *client) UserID() string { return c.userID }

// Send enqueues a frame without blocking. A full buffer means the peer
// cannot keep up; the connection is closed and the broker detaches it.
func (c *client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.close()
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// sendEvent encodes and enqueues one event for this connection only.
func (c *client) sendEvent(name string, data any) {
	frame, err := model.EncodeEvent(name, data)
	if err != nil {
		log.Printf("failed to encode %q event: %v", name, err)
		return
	}
	c.Send(frame)
}

// readPump pumps events from the websocket connection to the gateway.
func (c *client) readPump() {
	defer func() {
		c.gw.rooms.Detach(c.id)
		c.gw.reg.Unregister(c.id)
		if c.ready {
			c.gw.presence.Broadcast()
		}
		c.close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxEventSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		var evt model.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			log.Printf("malformed event from %s: %v", c.userID, err)
			continue
		}
		c.handleEvent(evt)
	}
}

func (c *client) handleEvent(evt model.Event) {
	switch evt.Name {
	case model.EventSetup:
		var userID string
		if err := json.Unmarshal(evt.Data, &userID); err != nil || userID == "" {
			log.Printf("setup event with bad payload from %s", c.userID)
			return
		}
		// The token is authoritative; a client cannot set up as someone else.
		if userID != c.userID {
			log.Printf("setup user %s does not match token user %s", userID, c.userID)
			return
		}
		c.gw.reg.Register(c.id, c.userID)
		c.gw.rooms.Attach(c)
		c.ready = true
		c.gw.presence.Broadcast()
		c.sendEvent(model.EventConnected, nil)

	case model.EventJoinChat:
		if roomID := eventRoom(evt); roomID != "" {
			c.gw.rooms.Join(c.id, roomID)
		}

	case model.EventLeaveChat:
		if roomID := eventRoom(evt); roomID != "" {
			c.gw.rooms.Leave(c.id, roomID)
		}

	case model.EventTyping, model.EventStopTyping:
		if roomID := eventRoom(evt); roomID != "" {
			if err := c.gw.rooms.Relay(roomID, c.id, evt.Name, roomID); err != nil {
				log.Printf("failed to relay %q to %s: %v", evt.Name, roomID, err)
			}
		}

	default:
		log.Printf("unknown event %q from %s", evt.Name, c.userID)
	}
}

func eventRoom(evt model.Event) string {
	var roomID string
	if err := json.Unmarshal(evt.Data, &roomID); err != nil {
		return ""
	}
	return roomID
}

// writePump pumps frames from the broker to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWS authenticates and upgrades a websocket request.
func (g *gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	claims, err := g.auth.ValidateToken(token)
	if err != nil {
		log.Printf("websocket auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: claims.UserID,
		gw:     g,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()
}
