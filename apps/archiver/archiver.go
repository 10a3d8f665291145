package main

import (
	"context"
	"log"
	"time"

	"github.com/rish4987/chat-app-backend/pkg/db"
	"github.com/rish4987/chat-app-backend/pkg/feed"
	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/store"
)

// Archiver follows the message-event feed and maintains the per-user
// conversation projections: unread counters and last-activity marks.
// It runs off the delivery path, so a slow or failed projection write
// never delays message fan-out.
type Archiver struct {
	consumer *feed.Consumer
	session  *db.Session
	chats    store.ChatStore
}

func NewArchiver(consumer *feed.Consumer, session *db.Session) *Archiver {
	return &Archiver{
		consumer: consumer,
		session:  session,
		chats:    store.NewScylla(session),
	}
}

// Run consumes until ctx is canceled. Errors are logged with a short
// backoff; the reader's group offset has already advanced, so a
// malformed event is never reprocessed.
func (a *Archiver) Run(ctx context.Context) {
	for {
		msg, err := a.consumer.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading feed: %v. Retrying in 1s...", err)
			time.Sleep(1 * time.Second)
			continue
		}
		a.project(ctx, msg)
	}
}

func (a *Archiver) project(ctx context.Context, msg *model.Message) {
	chat, err := a.chats.Chat(ctx, msg.ChatID)
	if err != nil {
		log.Printf("Failed to load chat %s for message %d: %v", msg.ChatID, msg.ID, err)
		return
	}

	for _, member := range chat.Users {
		q := `INSERT INTO user_chats (user_id, chat_id, last_message_at) VALUES (?, ?, ?)`
		if err := a.session.Query(q, member, chat.ID, msg.CreatedAt).WithContext(ctx).Exec(); err != nil {
			log.Printf("Failed to touch conversation for %s: %v", member, err)
		}
	}

	for _, recipient := range chat.Recipients(msg.SenderID) {
		q := `UPDATE unread_counts SET unread = unread + 1 WHERE user_id = ? AND chat_id = ?`
		if err := a.session.Query(q, recipient, chat.ID).WithContext(ctx).Exec(); err != nil {
			log.Printf("Failed to increment unread count for %s: %v", recipient, err)
		}
	}
}
