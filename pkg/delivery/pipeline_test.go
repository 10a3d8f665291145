package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/registry"
	"github.com/rish4987/chat-app-backend/pkg/snowflake"
	"github.com/rish4987/chat-app-backend/pkg/store"
)

type publication struct {
	room    string // room or user id
	toUser  bool
	event   string
	payload any
}

type fakeBroker struct {
	pubs []publication
	fail bool
}

func (b *fakeBroker) Publish(roomID, event string, payload any) error {
	if b.fail {
		return errors.New("broker down")
	}
	b.pubs = append(b.pubs, publication{room: roomID, event: event, payload: payload})
	return nil
}

func (b *fakeBroker) PublishToUser(userID, event string, payload any) error {
	if b.fail {
		return errors.New("broker down")
	}
	b.pubs = append(b.pubs, publication{room: userID, toUser: true, event: event, payload: payload})
	return nil
}

func (b *fakeBroker) byEvent(event string) []publication {
	var out []publication
	for _, p := range b.pubs {
		if p.event == event {
			out = append(out, p)
		}
	}
	return out
}

type fixture struct {
	chats    *store.Memory
	broker   *fakeBroker
	reg      *registry.Memory
	pipeline *Pipeline
}

func newFixture(t *testing.T, chatUsers ...string) *fixture {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateChat(context.Background(), &model.Chat{
		ID:        "chat1",
		Users:     chatUsers,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))

	ids, err := snowflake.NewNode(1)
	require.NoError(t, err)

	broker := &fakeBroker{}
	reg := registry.NewMemory()
	return &fixture{
		chats:    mem,
		broker:   broker,
		reg:      reg,
		pipeline: NewPipeline(mem, mem, broker, reg, ids),
	}
}

func TestSendRecipientOffline(t *testing.T) {
	f := newFixture(t, "A", "B")

	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, msg.Status)

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, persisted.Status)

	// No status-update event fires while the recipient is offline.
	assert.Empty(t, f.broker.byEvent(model.EventMessageUpdated))
}

func TestSendRecipientOnline(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.reg.Register("conn-b", "B")

	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	assert.Equal(t, model.StatusDelivered, msg.Status)

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, persisted.Status)

	updates := f.broker.byEvent(model.EventMessageUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "A", updates[0].room, "status echo goes to the sender's user room")
	assert.True(t, updates[0].toUser)
	echoed := updates[0].payload.(*model.Message)
	assert.Equal(t, model.StatusDelivered, echoed.Status)
}

func TestSendBroadcastTargets(t *testing.T) {
	f := newFixture(t, "A", "B")

	_, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	received := f.broker.byEvent(model.EventMessageReceived)
	require.Len(t, received, 1)
	assert.Equal(t, "chat1", received[0].room)
	assert.False(t, received[0].toUser, "message received targets the chat room")

	notified := f.broker.byEvent(model.EventNotificationReceived)
	require.Len(t, notified, 1)
	assert.Equal(t, "B", notified[0].room)
	assert.True(t, notified[0].toUser, "notification targets the recipient's user room")
}

func TestSendGroupChatMultipleOnlineRecipients(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.reg.Register("conn-b", "B")
	f.reg.Register("conn-c", "C")

	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi all")
	require.NoError(t, err)

	// Status is message-level: two online recipients still yield exactly
	// one terminal status value.
	assert.Equal(t, model.StatusDelivered, msg.Status)
	assert.Len(t, f.broker.byEvent(model.EventNotificationReceived), 2)
	assert.Len(t, f.broker.byEvent(model.EventMessageUpdated), 1)
}

func TestSendRejectsNonMember(t *testing.T) {
	f := newFixture(t, "A", "B")

	_, err := f.pipeline.Send(context.Background(), "mallory", "chat1", "hi")
	assert.ErrorIs(t, err, ErrNotChatMember)

	// No side effects: nothing persisted, nothing broadcast.
	msgs, err := f.chats.Messages(context.Background(), "chat1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, f.broker.pubs)
}

func TestSendUnknownChat(t *testing.T) {
	f := newFixture(t, "A", "B")

	_, err := f.pipeline.Send(context.Background(), "A", "nope", "hi")
	assert.ErrorIs(t, err, store.ErrChatNotFound)
	assert.Empty(t, f.broker.pubs)
}

type failingMessages struct {
	store.MessageStore
}

func (f failingMessages) InsertMessage(ctx context.Context, msg *model.Message) error {
	return errors.New("disk full")
}

func TestSendPersistFailureIsTerminal(t *testing.T) {
	f := newFixture(t, "A", "B")
	broken := NewPipeline(f.chats, failingMessages{f.chats}, f.broker, f.reg, mustNode(t))

	_, err := broken.Send(context.Background(), "A", "chat1", "hi")
	require.Error(t, err)
	assert.Empty(t, f.broker.pubs, "nothing broadcast when persistence fails")
}

type failingLatest struct {
	store.ChatStore
}

func (f failingLatest) SetLatestMessage(ctx context.Context, chatID string, messageID int64) error {
	return errors.New("write timeout")
}

func TestSendLatestMessageFailureNonFatal(t *testing.T) {
	f := newFixture(t, "A", "B")
	p := NewPipeline(failingLatest{f.chats}, f.chats, f.broker, f.reg, mustNode(t))

	msg, err := p.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err, "message is durable; the pointer update is best-effort")
	assert.NotNil(t, msg)
	assert.Len(t, f.broker.byEvent(model.EventMessageReceived), 1)
}

func TestSendBroadcastFailureNonFatal(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.reg.Register("conn-b", "B")
	f.broker.fail = true

	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err, "caller already has a durable message")

	// Status tracking still ran despite the dead broker.
	assert.Equal(t, model.StatusDelivered, msg.Status)
}

func TestMarkSeen(t *testing.T) {
	f := newFixture(t, "A", "B")
	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)
	f.broker.pubs = nil

	require.NoError(t, f.pipeline.MarkSeen(context.Background(), "B", "chat1", []int64{msg.ID}))

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeen, persisted.Status)

	updates := f.broker.byEvent(model.EventMessageUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "A", updates[0].room, "seen echo goes to the message sender")
}

func TestMarkSeenIdempotentAndMonotonic(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.reg.Register("conn-b", "B")
	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	require.NoError(t, f.pipeline.MarkSeen(context.Background(), "B", "chat1", []int64{msg.ID}))
	f.broker.pubs = nil

	// Second mark-seen changes nothing and fires no echo.
	require.NoError(t, f.pipeline.MarkSeen(context.Background(), "B", "chat1", []int64{msg.ID}))
	assert.Empty(t, f.broker.byEvent(model.EventMessageUpdated))

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeen, persisted.Status)
}

func TestMarkSeenSkipsOwnAndUnknownMessages(t *testing.T) {
	f := newFixture(t, "A", "B")
	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	// The sender marking its own message, plus an id that never existed.
	require.NoError(t, f.pipeline.MarkSeen(context.Background(), "A", "chat1", []int64{msg.ID, 424242}))

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, persisted.Status)
}

func TestMarkSeenRejectsNonMember(t *testing.T) {
	f := newFixture(t, "A", "B")
	msg, err := f.pipeline.Send(context.Background(), "A", "chat1", "hi")
	require.NoError(t, err)

	err = f.pipeline.MarkSeen(context.Background(), "mallory", "chat1", []int64{msg.ID})
	assert.ErrorIs(t, err, ErrNotChatMember)

	persisted, err := f.chats.Message(context.Background(), "chat1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, persisted.Status)
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}
