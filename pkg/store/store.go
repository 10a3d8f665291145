// Package store is the persistence boundary for chats and messages.
//
// The durable source of truth lives in ScyllaDB; the in-memory variant
// backs development setups and hermetic tests. Both enforce the delivery
// status invariant: a message status never moves backwards.
package store

import (
	"context"
	"errors"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

var (
	ErrChatNotFound    = errors.New("store: chat not found")
	ErrMessageNotFound = errors.New("store: message not found")
)

type ChatStore interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	Chat(ctx context.Context, chatID string) (*model.Chat, error)

	// DirectChat returns the existing one-to-one chat between the two
	// users, or ErrChatNotFound. Argument order does not matter.
	DirectChat(ctx context.Context, userA, userB string) (*model.Chat, error)

	ChatsForUser(ctx context.Context, userID string) ([]*model.Chat, error)
	SetLatestMessage(ctx context.Context, chatID string, messageID int64) error

	// UnreadCounts returns per-chat unread message counts for the user.
	// Chats with no unread messages may be absent from the map.
	UnreadCounts(ctx context.Context, userID string) (map[string]int64, error)
	ResetUnread(ctx context.Context, userID, chatID string) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, msg *model.Message) error
	Message(ctx context.Context, chatID string, id int64) (*model.Message, error)

	// Messages returns up to limit messages for the chat, newest first.
	// A non-zero before restricts results to ids strictly below it.
	Messages(ctx context.Context, chatID string, limit int, before int64) ([]*model.Message, error)

	// AdvanceStatus moves the message status forward to target and
	// returns the resulting status. When the recorded status is already
	// at or past target the call is a no-op, preserving monotonicity.
	AdvanceStatus(ctx context.Context, chatID string, id int64, target model.DeliveryStatus) (model.DeliveryStatus, error)
}

// directKey orders a user pair canonically so both lookups and writes
// agree on the partition for a one-to-one chat.
func directKey(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}
