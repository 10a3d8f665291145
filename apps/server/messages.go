package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rish4987/chat-app-backend/pkg/auth"
	"github.com/rish4987/chat-app-backend/pkg/delivery"
	"github.com/rish4987/chat-app-backend/pkg/store"
)

type SendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// MessagesHandler serves POST (send via the delivery pipeline) and GET
// (history for a chat the caller belongs to).
func MessagesHandler(pipeline *delivery.Pipeline, chats store.ChatStore, messages store.MessageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			sendMessage(w, r, pipeline)
		case http.MethodGet:
			fetchMessages(w, r, chats, messages)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func sendMessage(w http.ResponseWriter, r *http.Request, pipeline *delivery.Pipeline) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.ChatID == "" || req.Content == "" {
		http.Error(w, "chat_id and content are required", http.StatusBadRequest)
		return
	}

	msg, err := pipeline.Send(r.Context(), claims.UserID, req.ChatID, req.Content)
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	case errors.Is(err, delivery.ErrNotChatMember):
		http.Error(w, "Not authorized for this chat", http.StatusForbidden)
		return
	case err != nil:
		log.Printf("send message failed: %v", err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func fetchMessages(w http.ResponseWriter, r *http.Request, chats store.ChatStore, messages store.MessageStore) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	chat, err := chats.Chat(r.Context(), chatID)
	if errors.Is(err, store.ErrChatNotFound) {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("fetch chat %s failed: %v", chatID, err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}
	if !chat.HasMember(claims.UserID) {
		http.Error(w, "Not authorized for this chat", http.StatusForbidden)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	var before int64
	if v := r.URL.Query().Get("before"); v != "" {
		before, _ = strconv.ParseInt(v, 10, 64)
	}

	msgs, err := messages.Messages(r.Context(), chatID, limit, before)
	if err != nil {
		log.Printf("fetch messages for %s failed: %v", chatID, err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	// The store pages newest first; clients render pages oldest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	writeJSON(w, http.StatusOK, msgs)
}

type MarkSeenRequest struct {
	ChatID     string  `json:"chat_id"`
	MessageIDs []int64 `json:"message_ids"`
}

// MarkSeenHandler advances message statuses to seen on behalf of the
// caller and echoes the updates to the senders.
func MarkSeenHandler(pipeline *delivery.Pipeline) http.HandlerFunc {
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

		var req MarkSeenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ChatID == "" || len(req.MessageIDs) == 0 {
			http.Error(w, "chat_id and message_ids are required", http.StatusBadRequest)
			return
		}

		err := pipeline.MarkSeen(r.Context(), claims.UserID, req.ChatID, req.MessageIDs)
		switch {
		case errors.Is(err, store.ErrChatNotFound):
			http.Error(w, "Chat not found", http.StatusNotFound)
		case errors.Is(err, delivery.ErrNotChatMember):
			http.Error(w, "Not authorized for this chat", http.StatusForbidden)
		case err != nil:
			log.Printf("mark seen failed: %v", err)
			http.Error(w, "Failed to mark messages seen", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}
