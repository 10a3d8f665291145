// Package delivery orchestrates sending one message: persist, fan out
// to live connections, track per-recipient delivery status.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/snowflake"
	"github.com/rish4987/chat-app-backend/pkg/store"
)

// ErrNotChatMember rejects senders that are not part of the target chat.
var ErrNotChatMember = errors.New("delivery: user is not a member of this chat")

// Broadcaster is the slice of the room broker the pipeline needs.
type Broadcaster interface {
	Publish(roomID, event string, payload any) error
	PublishToUser(userID, event string, payload any) error
}

// Presence answers online checks for delivery-status transitions.
type Presence interface {
	IsOnline(userID string) bool
}

// Feed receives every persisted message for downstream projections.
type Feed interface {
	Publish(ctx context.Context, msg *model.Message) error
}

// Pipeline coordinates one message send end to end. Failures before the
// message is persisted abort the operation; everything after the
// durability point is best-effort and only logged, since the caller
// already holds a durable message and clients reconcile through fetch.
type Pipeline struct {
	chats    store.ChatStore
	messages store.MessageStore
	broker   Broadcaster
	presence Presence
	ids      *snowflake.Node
	feed     Feed // optional
}

func NewPipeline(chats store.ChatStore, messages store.MessageStore, broker Broadcaster, presence Presence, ids *snowflake.Node) *Pipeline {
	// Wiring bugs here are startup-ordering mistakes, not runtime
	// conditions; fail loudly at composition time.
	if chats == nil || messages == nil {
		panic("delivery: store is nil")
	}
	if broker == nil {
		panic("delivery: broadcaster is nil")
	}
	if presence == nil {
		panic("delivery: presence is nil")
	}
	if ids == nil {
		panic("delivery: id generator is nil")
	}
	return &Pipeline{chats: chats, messages: messages, broker: broker, presence: presence, ids: ids}
}

// WithFeed attaches the durable message-event feed.
func (p *Pipeline) WithFeed(f Feed) *Pipeline {
	p.feed = f
	return p
}

// Send persists and delivers one message. Content is validated non-empty
// by the HTTP boundary. The returned message carries the final status
// reached during this invocation.
func (p *Pipeline) Send(ctx context.Context, senderID, chatID, content string) (*model.Message, error) {
	chat, err := p.chats.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(senderID) {
		return nil, ErrNotChatMember
	}

	msg := &model.Message{
		ID:        p.ids.Generate(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Status:    model.StatusSent,
		CreatedAt: time.Now().UTC(),
	}

	// Durability point. A failure here is terminal: nothing was
	// broadcast, the caller gets the error.
	if err := p.messages.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// The message itself is durable; a stale latest-message pointer is
	// repaired by the next send.
	if err := p.chats.SetLatestMessage(ctx, chatID, msg.ID); err != nil {
		log.Printf("delivery: failed to update latest message for chat %s: %v", chatID, err)
	}

	if p.feed != nil {
		if err := p.feed.Publish(ctx, msg); err != nil {
			log.Printf("delivery: failed to publish message %d to feed: %v", msg.ID, err)
		}
	}

	// Connections currently viewing the chat get the message directly.
	if err := p.broker.Publish(chatID, model.EventMessageReceived, msg); err != nil {
		log.Printf("delivery: failed to broadcast message %d to chat %s: %v", msg.ID, chatID, err)
	}

	delivered := false
	for _, recipient := range chat.Recipients(senderID) {
		// Recipients not viewing the chat still learn of the message
		// through their user room.
		if err := p.broker.PublishToUser(recipient, model.EventNotificationReceived, msg); err != nil {
			log.Printf("delivery: failed to notify %s about message %d: %v", recipient, msg.ID, err)
		}

		if !p.presence.IsOnline(recipient) {
			continue
		}
		status, err := p.messages.AdvanceStatus(ctx, chatID, msg.ID, model.StatusDelivered)
		if err != nil {
			log.Printf("delivery: failed to mark message %d delivered: %v", msg.ID, err)
			continue
		}
		msg.Status = status
		delivered = true
	}

	// Echo the status change so the sender's client can update its tick.
	if delivered {
		if err := p.broker.PublishToUser(senderID, model.EventMessageUpdated, msg); err != nil {
			log.Printf("delivery: failed to echo status of message %d: %v", msg.ID, err)
		}
	}

	return msg, nil
}

// MarkSeen advances the given messages to seen on behalf of userID and
// echoes a status update to each message's sender. A user can only mark
// messages in chats they belong to, and never their own messages.
func (p *Pipeline) MarkSeen(ctx context.Context, userID, chatID string, messageIDs []int64) error {
	chat, err := p.chats.Chat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(userID) {
		return ErrNotChatMember
	}

	for _, id := range messageIDs {
		msg, err := p.messages.Message(ctx, chatID, id)
		if errors.Is(err, store.ErrMessageNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load message %d: %w", id, err)
		}
		if msg.SenderID == userID {
			continue
		}

		status, err := p.messages.AdvanceStatus(ctx, chatID, id, model.StatusSeen)
		if err != nil {
			log.Printf("delivery: failed to mark message %d seen: %v", id, err)
			continue
		}
		if status == msg.Status {
			continue
		}
		msg.Status = status
		if err := p.broker.PublishToUser(msg.SenderID, model.EventMessageUpdated, msg); err != nil {
			log.Printf("delivery: failed to echo seen status of message %d: %v", id, err)
		}
	}
	return nil
}
