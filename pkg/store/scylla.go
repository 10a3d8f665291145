package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/rish4987/chat-app-backend/pkg/db"
	"github.com/rish4987/chat-app-backend/pkg/model"
)

// Scylla persists chats and messages in ScyllaDB. Messages cluster by id
// in descending order inside a chat partition, so history reads newest
// first without sorting. Status transitions use lightweight transactions
// to keep the monotonicity invariant under concurrent writers.
type Scylla struct {
	session *db.Session
}

func NewScylla(session *db.Session) *Scylla {
	return &Scylla{session: session}
}

func (s *Scylla) CreateChat(ctx context.Context, chat *model.Chat) error {
	q := `INSERT INTO chats (id, users, is_group, latest_message_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	if err := s.session.Query(q, chat.ID, chat.Users, chat.IsGroup, chat.LatestMessageID, chat.CreatedAt, chat.UpdatedAt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	if !chat.IsGroup && len(chat.Users) == 2 {
		a, b := directKey(chat.Users[0], chat.Users[1])
		q := `INSERT INTO direct_chats (user_a, user_b, chat_id) VALUES (?, ?, ?)`
		if err := s.session.Query(q, a, b, chat.ID).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("insert direct chat index: %w", err)
		}
	}

	for _, userID := range chat.Users {
		q := `INSERT INTO user_chats (user_id, chat_id) VALUES (?, ?)`
		if err := s.session.Query(q, userID, chat.ID).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("insert user chat index: %w", err)
		}
	}
	return nil
}

func (s *Scylla) Chat(ctx context.Context, chatID string) (*model.Chat, error) {
	chat := &model.Chat{ID: chatID}
	q := `SELECT users, is_group, latest_message_id, created_at, updated_at FROM chats WHERE id = ?`
	err := s.session.Query(q, chatID).WithContext(ctx).
		Scan(&chat.Users, &chat.IsGroup, &chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select chat: %w", err)
	}
	return chat, nil
}

func (s *Scylla) DirectChat(ctx context.Context, userA, userB string) (*model.Chat, error) {
	a, b := directKey(userA, userB)
	var chatID string
	q := `SELECT chat_id FROM direct_chats WHERE user_a = ? AND user_b = ?`
	err := s.session.Query(q, a, b).WithContext(ctx).Scan(&chatID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select direct chat index: %w", err)
	}
	return s.Chat(ctx, chatID)
}

func (s *Scylla) ChatsForUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	iter := s.session.Query(`SELECT chat_id FROM user_chats WHERE user_id = ?`, userID).WithContext(ctx).Iter()

	var chatIDs []string
	var chatID string
	for iter.Scan(&chatID) {
		chatIDs = append(chatIDs, chatID)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select user chats: %w", err)
	}

	chats := make([]*model.Chat, 0, len(chatIDs))
	for _, id := range chatIDs {
		chat, err := s.Chat(ctx, id)
		if errors.Is(err, ErrChatNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *Scylla) SetLatestMessage(ctx context.Context, chatID string, messageID int64) error {
	q := `UPDATE chats SET latest_message_id = ?, updated_at = toTimestamp(now()) WHERE id = ?`
	if err := s.session.Query(q, messageID, chatID).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("update latest message: %w", err)
	}
	return nil
}

func (s *Scylla) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	iter := s.session.Query(`SELECT chat_id, unread FROM unread_counts WHERE user_id = ?`, userID).WithContext(ctx).Iter()

	counts := make(map[string]int64)
	var chatID string
	var n int64
	for iter.Scan(&chatID, &n) {
		counts[chatID] = n
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select unread counts: %w", err)
	}
	return counts, nil
}

func (s *Scylla) ResetUnread(ctx context.Context, userID, chatID string) error {
	// Counter rows must never be deleted: the tombstone makes later
	// increments on the same row unreliable. Reset by subtracting the
	// current value instead. An increment racing in between survives
	// the reset, which is the right outcome for an unread badge.
	var n int64
	q := `SELECT unread FROM unread_counts WHERE user_id = ? AND chat_id = ?`
	err := s.session.Query(q, userID, chatID).WithContext(ctx).Scan(&n)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select unread count: %w", err)
	}
	if n == 0 {
		return nil
	}

	uq := `UPDATE unread_counts SET unread = unread - ? WHERE user_id = ? AND chat_id = ?`
	if err := s.session.Query(uq, n, userID, chatID).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("reset unread count: %w", err)
	}
	return nil
}

func (s *Scylla) InsertMessage(ctx context.Context, msg *model.Message) error {
	q := `INSERT INTO messages (chat_id, id, sender_id, content, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	err := s.session.Query(q, msg.ChatID, msg.ID, msg.SenderID, msg.Content, string(msg.Status), msg.CreatedAt).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Scylla) Message(ctx context.Context, chatID string, id int64) (*model.Message, error) {
	msg := &model.Message{ChatID: chatID, ID: id}
	var status string
	q := `SELECT sender_id, content, status, created_at FROM messages WHERE chat_id = ? AND id = ?`
	err := s.session.Query(q, chatID, id).WithContext(ctx).
		Scan(&msg.SenderID, &msg.Content, &status, &msg.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select message: %w", err)
	}
	msg.Status = model.DeliveryStatus(status)
	return msg, nil
}

func (s *Scylla) Messages(ctx context.Context, chatID string, limit int, before int64) ([]*model.Message, error) {
	var iter *gocql.Iter
	if before != 0 {
		q := `SELECT id, sender_id, content, status, created_at FROM messages WHERE chat_id = ? AND id < ? LIMIT ?`
		iter = s.session.Query(q, chatID, before, limit).WithContext(ctx).Iter()
	} else {
		q := `SELECT id, sender_id, content, status, created_at FROM messages WHERE chat_id = ? LIMIT ?`
		iter = s.session.Query(q, chatID, limit).WithContext(ctx).Iter()
	}

	var msgs []*model.Message
	var (
		id        int64
		senderID  string
		content   string
		status    string
		createdAt time.Time
	)
	for iter.Scan(&id, &senderID, &content, &status, &createdAt) {
		msgs = append(msgs, &model.Message{
			ID:        id,
			ChatID:    chatID,
			SenderID:  senderID,
			Content:   content,
			Status:    model.DeliveryStatus(status),
			CreatedAt: createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return msgs, nil
}

func (s *Scylla) AdvanceStatus(ctx context.Context, chatID string, id int64, target model.DeliveryStatus) (model.DeliveryStatus, error) {
	// Compare-and-set loop: the conditional update fails if another
	// writer moved the status between our read and write, in which case
	// we re-check against the fresher value.
	for attempt := 0; attempt < 3; attempt++ {
		var cur string
		q := `SELECT status FROM messages WHERE chat_id = ? AND id = ?`
		err := s.session.Query(q, chatID, id).WithContext(ctx).Scan(&cur)
		if errors.Is(err, gocql.ErrNotFound) {
			return "", ErrMessageNotFound
		}
		if err != nil {
			return "", fmt.Errorf("select message status: %w", err)
		}

		current := model.DeliveryStatus(cur)
		if !current.Before(target) {
			return current, nil
		}

		var prev string
		uq := `UPDATE messages SET status = ? WHERE chat_id = ? AND id = ? IF status = ?`
		applied, err := s.session.Query(uq, string(target), chatID, id, cur).WithContext(ctx).ScanCAS(&prev)
		if err != nil {
			return "", fmt.Errorf("update message status: %w", err)
		}
		if applied {
			return target, nil
		}
	}
	return "", fmt.Errorf("update message status: too much contention on message %d", id)
}
