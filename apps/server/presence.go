package main

import (
	"net/http"

	"github.com/rish4987/chat-app-backend/pkg/registry"
)

// PresenceHandler returns the current online-user snapshot. The same
// data streams to connected clients as "online users" events; this
// endpoint serves initial page loads.
func PresenceHandler(reg registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		users := reg.OnlineUsers()
		if users == nil {
			users = []string{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}
