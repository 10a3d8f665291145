package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rish4987/chat-app-backend/pkg/auth"
	"github.com/rish4987/chat-app-backend/pkg/model"
	"github.com/rish4987/chat-app-backend/pkg/store"
)

type CreateChatRequest struct {
	UserID string `json:"user_id"`
}

// ChatSummary is one entry of the chat list: the chat itself plus the
// latest message and the caller's unread count.
type ChatSummary struct {
	*model.Chat
	LatestMessage *model.Message `json:"latest_message,omitempty"`
	UnreadCount   int64          `json:"unread_count"`
}

// ChatsHandler serves POST (create-or-access a one-to-one chat) and GET
// (the caller's chat list for the sidebar).
func ChatsHandler(chats store.ChatStore, messages store.MessageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createOrAccessChat(w, r, chats)
		case http.MethodGet:
			listChats(w, r, chats, messages)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func createOrAccessChat(w http.ResponseWriter, r *http.Request, chats store.ChatStore) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.UserID == claims.UserID {
		http.Error(w, "Cannot create chat with yourself", http.StatusBadRequest)
		return
	}

	// Return the existing one-to-one chat if there is one.
	existing, err := chats.DirectChat(r.Context(), claims.UserID, req.UserID)
	if err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, store.ErrChatNotFound) {
		log.Printf("direct chat lookup failed: %v", err)
		http.Error(w, "Failed to access chat", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:        uuid.NewString(),
		Users:     []string{claims.UserID, req.UserID},
		IsGroup:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := chats.CreateChat(r.Context(), chat); err != nil {
		log.Printf("create chat failed: %v", err)
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func listChats(w http.ResponseWriter, r *http.Request, chats store.ChatStore, messages store.MessageStore) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := chats.ChatsForUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("list chats failed: %v", err)
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}

	unread, err := chats.UnreadCounts(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("unread counts failed: %v", err)
		unread = nil // the list is still useful without counts
	}

	summaries := make([]ChatSummary, 0, len(list))
	for _, chat := range list {
		s := ChatSummary{Chat: chat, UnreadCount: unread[chat.ID]}
		if chat.LatestMessageID != 0 {
			msg, err := messages.Message(r.Context(), chat.ID, chat.LatestMessageID)
			if err == nil {
				s.LatestMessage = msg
			}
		}
		summaries = append(summaries, s)
	}
	writeJSON(w, http.StatusOK, summaries)
}

type ReadRequest struct {
	ChatID string `json:"chat_id"`
}

// ReadHandler resets the caller's unread counter for a chat.
func ReadHandler(chats store.ChatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req ReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ChatID == "" {
			http.Error(w, "chat_id is required", http.StatusBadRequest)
			return
		}

		if err := chats.ResetUnread(r.Context(), claims.UserID, req.ChatID); err != nil {
			log.Printf("reset unread failed: %v", err)
			http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
