package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryStatusOrdering(t *testing.T) {
	assert.True(t, StatusSent.Before(StatusDelivered))
	assert.True(t, StatusSent.Before(StatusSeen))
	assert.True(t, StatusDelivered.Before(StatusSeen))

	assert.False(t, StatusSeen.Before(StatusDelivered))
	assert.False(t, StatusDelivered.Before(StatusDelivered))
	assert.False(t, StatusSeen.Before(StatusSent))
}

func TestDeliveryStatusValid(t *testing.T) {
	assert.True(t, StatusSent.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.True(t, StatusSeen.Valid())
	assert.False(t, DeliveryStatus("read").Valid())
}

func TestChatMembership(t *testing.T) {
	chat := &Chat{ID: "chat1", Users: []string{"alice", "bob", "carol"}}

	assert.True(t, chat.HasMember("bob"))
	assert.False(t, chat.HasMember("mallory"))
	assert.Equal(t, []string{"bob", "carol"}, chat.Recipients("alice"))
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent(EventOnlineUsers, []string{"u1", "u2"})
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(frame, &evt))
	assert.Equal(t, EventOnlineUsers, evt.Name)

	var users []string
	require.NoError(t, json.Unmarshal(evt.Data, &users))
	assert.Equal(t, []string{"u1", "u2"}, users)
}

func TestEncodeEventNoPayload(t *testing.T) {
	frame, err := EncodeEvent(EventConnected, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"connected"}`, string(frame))
}
