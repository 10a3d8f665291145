// Command client is a terminal chat client for manual testing: it logs
// in, opens the websocket, joins a one-to-one chat and sends messages
// through the REST endpoint while printing live events.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}

func openChat(apiAddr, token, peerID string) (*model.Chat, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": peerID})
	req, _ := http.NewRequest("POST", apiAddr+"/chats", bytes.NewBuffer(reqBody))
	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open chat failed: %s", string(body))
	}

	var chat model.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func sendMessage(apiAddr, token, chatID, content string) error {
	reqBody, _ := json.Marshal(map[string]string{"chat_id": chatID, "content": content})
	req, _ := http.NewRequest("POST", apiAddr+"/messages", bytes.NewBuffer(reqBody))
	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send failed: %s", string(body))
	}
	return nil
}

func sendEvent(c *websocket.Conn, name string, data any) error {
	frame, err := model.EncodeEvent(name, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

func printEvent(evt model.Event) {
	switch evt.Name {
	case model.EventConnected:
		fmt.Printf("\r[connected]\n> ")
	case model.EventOnlineUsers:
		var users []string
		json.Unmarshal(evt.Data, &users)
		fmt.Printf("\r[online: %v]\n> ", users)
	case model.EventMessageReceived, model.EventNotificationReceived:
		var msg model.Message
		if err := json.Unmarshal(evt.Data, &msg); err == nil {
			fmt.Printf("\r%s: %s\n> ", msg.SenderID, msg.Content)
		}
	case model.EventMessageUpdated:
		var msg model.Message
		if err := json.Unmarshal(evt.Data, &msg); err == nil {
			fmt.Printf("\r[message %d is now %s]\n> ", msg.ID, msg.Status)
		}
	case model.EventTyping:
		fmt.Printf("\r[peer is typing...]\n> ")
	case model.EventStopTyping:
		fmt.Printf("\r[peer stopped typing]\n> ")
	default:
		fmt.Printf("\r[%s] %s\n> ", evt.Name, evt.Data)
	}
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "server address")
	apiAddr := flag.String("api", "http://localhost:8080", "api base url")
	userID := flag.String("user", "user1", "user id")
	peerID := flag.String("peer", "", "user id to chat with")
	flag.Parse()

	if *peerID == "" {
		log.Fatal("-peer is required")
	}

	// 1. Login to get token
	log.Printf("Logging in as %s...", *userID)
	token, err := login(*apiAddr, *userID)
	if err != nil {
		log.Fatal("Login failed:", err)
	}

	// 2. Create or access the one-to-one chat
	chat, err := openChat(*apiAddr, token, *peerID)
	if err != nil {
		log.Fatal("Open chat failed:", err)
	}
	log.Printf("Chat %s with %s", chat.ID, *peerID)

	// 3. Connect the websocket with the token
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	// 4. Announce ourselves and join the chat room
	if err := sendEvent(c, model.EventSetup, *userID); err != nil {
		log.Fatal("setup:", err)
	}
	if err := sendEvent(c, model.EventJoinChat, chat.ID); err != nil {
		log.Fatal("join chat:", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			var evt model.Event
			if err := json.Unmarshal(raw, &evt); err != nil {
				log.Printf("Received raw: %s", raw)
				continue
			}
			printEvent(evt)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 5. Read from stdin and send messages
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			switch text {
			case "/quit":
				close(interrupt)
				return
			case "/typing":
				if err := sendEvent(c, model.EventTyping, chat.ID); err != nil {
					log.Println("write:", err)
					return
				}
			default:
				if err := sendMessage(*apiAddr, token, chat.ID, text); err != nil {
					log.Println("send:", err)
				}
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
