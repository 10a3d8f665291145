// Package presence publishes the online-user set to all connections.
package presence

import (
	"log"

	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/registry"
)

// broadcaster is the single interface point for the presence fan-out, so
// a throttled or diffing strategy can be swapped in under connect churn
// without touching the registry or the callers.
type broadcaster interface {
	PublishAll(event string, payload any) error
}

// Publisher derives the global online-user set from the registry and
// broadcasts it whenever asked. Every caller gets the full snapshot, not
// a delta: clients render the online indicator without diff state.
type Publisher struct {
	reg    registry.Registry
	broker broadcaster
}

func NewPublisher(reg registry.Registry, broker broadcaster) *Publisher {
	if reg == nil {
		panic("presence: registry is nil")
	}
	if broker == nil {
		panic("presence: broadcaster is nil")
	}
	return &Publisher{reg: reg, broker: broker}
}

// Broadcast publishes the current online-user snapshot to every attached
// connection. Called on each connection setup and disconnect.
func (p *Publisher) Broadcast() {
	users := p.reg.OnlineUsers()
	if users == nil {
		users = []string{}
	}
	if err := p.broker.PublishAll(model.EventOnlineUsers, users); err != nil {
		log.Printf("presence: failed to broadcast online users: %v", err)
	}
}
