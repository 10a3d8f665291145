package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

// Memory keeps chats and messages in process memory. It backs local
// development without a Scylla cluster and the pipeline tests.
type Memory struct {
	mu       sync.RWMutex
	chats    map[string]*model.Chat
	direct   map[string]string                 // "a|b" (ordered) -> chat id
	messages map[string]map[int64]*model.Message // chat id -> message id -> message
	unread   map[string]map[string]int64       // user id -> chat id -> count
}

func NewMemory() *Memory {
	return &Memory{
		chats:    make(map[string]*model.Chat),
		direct:   make(map[string]string),
		messages: make(map[string]map[int64]*model.Message),
		unread:   make(map[string]map[string]int64),
	}
}

func copyChat(c *model.Chat) *model.Chat {
	out := *c
	out.Users = append([]string(nil), c.Users...)
	return &out
}

func copyMessage(m *model.Message) *model.Message {
	out := *m
	return &out
}

func (s *Memory) CreateChat(ctx context.Context, chat *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[chat.ID] = copyChat(chat)
	if !chat.IsGroup && len(chat.Users) == 2 {
		a, b := directKey(chat.Users[0], chat.Users[1])
		s.direct[a+"|"+b] = chat.ID
	}
	return nil
}

func (s *Memory) Chat(ctx context.Context, chatID string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return copyChat(chat), nil
}

func (s *Memory) DirectChat(ctx context.Context, userA, userB string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, b := directKey(userA, userB)
	chatID, ok := s.direct[a+"|"+b]
	if !ok {
		return nil, ErrChatNotFound
	}
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return copyChat(chat), nil
}

func (s *Memory) ChatsForUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chats []*model.Chat
	for _, chat := range s.chats {
		if chat.HasMember(userID) {
			chats = append(chats, copyChat(chat))
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (s *Memory) SetLatestMessage(ctx context.Context, chatID string, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	chat.LatestMessageID = messageID
	if msgs := s.messages[chatID]; msgs != nil {
		if msg, ok := msgs[messageID]; ok {
			chat.UpdatedAt = msg.CreatedAt
		}
	}
	return nil
}

func (s *Memory) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.unread[userID]))
	for chatID, n := range s.unread[userID] {
		counts[chatID] = n
	}
	return counts, nil
}

func (s *Memory) ResetUnread(ctx context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if counts := s.unread[userID]; counts != nil {
		delete(counts, chatID)
	}
	return nil
}

// IncrementUnread bumps the unread counter for one user and chat. The
// Scylla deployment maintains these counters through the archiver; the
// in-memory variant exposes the same write for single-process setups.
func (s *Memory) IncrementUnread(ctx context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unread[userID] == nil {
		s.unread[userID] = make(map[string]int64)
	}
	s.unread[userID][chatID]++
	return nil
}

func (s *Memory) InsertMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messages[msg.ChatID] == nil {
		s.messages[msg.ChatID] = make(map[int64]*model.Message)
	}
	s.messages[msg.ChatID][msg.ID] = copyMessage(msg)
	return nil
}

func (s *Memory) Message(ctx context.Context, chatID string, id int64) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[chatID][id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

func (s *Memory) Messages(ctx context.Context, chatID string, limit int, before int64) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []*model.Message
	for _, msg := range s.messages[chatID] {
		if before != 0 && msg.ID >= before {
			continue
		}
		msgs = append(msgs, copyMessage(msg))
	}
	// Newest first, matching the Scylla clustering order.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *Memory) AdvanceStatus(ctx context.Context, chatID string, id int64, target model.DeliveryStatus) (model.DeliveryStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[chatID][id]
	if !ok {
		return "", ErrMessageNotFound
	}
	if msg.Status.Before(target) {
		msg.Status = target
	}
	return msg.Status, nil
}
