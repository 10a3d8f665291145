package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/registry"
)

type captureBroadcaster struct {
	events   []string
	payloads []any
}

func (c *captureBroadcaster) PublishAll(event string, payload any) error {
	c.events = append(c.events, event)
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestBroadcastSnapshot(t *testing.T) {
	reg := registry.NewMemory()
	cap := &captureBroadcaster{}
	pub := NewPublisher(reg, cap)

	reg.Register("c1", "u1")
	pub.Broadcast()

	reg.Register("c2", "u2")
	pub.Broadcast()

	reg.Unregister("c1")
	pub.Broadcast()

	require.Len(t, cap.events, 3)
	for _, name := range cap.events {
		assert.Equal(t, model.EventOnlineUsers, name)
	}
	assert.ElementsMatch(t, []string{"u1"}, cap.payloads[0])
	assert.ElementsMatch(t, []string{"u1", "u2"}, cap.payloads[1])
	assert.ElementsMatch(t, []string{"u2"}, cap.payloads[2])
}

func TestBroadcastEmptySet(t *testing.T) {
	reg := registry.NewMemory()
	cap := &captureBroadcaster{}
	pub := NewPublisher(reg, cap)

	pub.Broadcast()

	require.Len(t, cap.payloads, 1)
	users, ok := cap.payloads[0].([]string)
	require.True(t, ok)
	assert.NotNil(t, users, "clients receive an empty array, not null")
	assert.Empty(t, users)
}

func TestNewPublisherRejectsNilDeps(t *testing.T) {
	assert.Panics(t, func() { NewPublisher(nil, &captureBroadcaster{}) })
	assert.Panics(t, func() { NewPublisher(registry.NewMemory(), nil) })
}
