// Command verify_api smoke-tests the REST surface against a running server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID string) string {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		log.Fatal(err)
	}
	return loginResp.Token
}

func do(token string, req *http.Request) []byte {
	req.Header.Add("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	log.Printf("%s %s -> %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	return body
}

func main() {
	apiAddr := "http://localhost:8080"

	tokenA := login(apiAddr, "verify_user_a")
	fmt.Printf("Token: %s...\n", tokenA[:10])

	// Create (or access) the chat with verify_user_b.
	reqBody, _ := json.Marshal(map[string]string{"user_id": "verify_user_b"})
	req, _ := http.NewRequest("POST", apiAddr+"/chats", bytes.NewBuffer(reqBody))
	var chat model.Chat
	if err := json.Unmarshal(do(tokenA, req), &chat); err != nil {
		log.Fatal("Unexpected /chats response:", err)
	}

	// Send a message.
	reqBody, _ = json.Marshal(map[string]string{"chat_id": chat.ID, "content": "smoke test"})
	req, _ = http.NewRequest("POST", apiAddr+"/messages", bytes.NewBuffer(reqBody))
	do(tokenA, req)

	// Fetch history.
	req, _ = http.NewRequest("GET", apiAddr+"/messages?chat_id="+chat.ID, nil)
	do(tokenA, req)

	// Presence snapshot.
	req, _ = http.NewRequest("GET", apiAddr+"/presence", nil)
	do(tokenA, req)
}
