package model

import "encoding/json"

// Wire event names. These are part of the client protocol and must not change.
const (
	// client -> server
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventLeaveChat  = "leave chat"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"

	// server -> client
	EventConnected            = "connected"
	EventOnlineUsers          = "online users"
	EventMessageReceived      = "message received"
	EventNotificationReceived = "notification received"
	EventMessageUpdated       = "message updated"
)

// Event is the JSON envelope exchanged over the websocket.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals an event envelope carrying data as its payload.
func EncodeEvent(name string, data any) ([]byte, error) {
	evt := Event{Name: name}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		evt.Data = raw
	}
	return json.Marshal(evt)
}
