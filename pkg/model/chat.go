package model

import "time"

// Chat is a persisted conversation. One-to-one chats have exactly two
// members and membership is immutable after creation.
type Chat struct {
	ID              string    `json:"id"`
	Users           []string  `json:"users"`
	IsGroup         bool      `json:"is_group"`
	LatestMessageID int64     `json:"latest_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasMember reports whether userID is a member of the chat.
func (c *Chat) HasMember(userID string) bool {
	for _, u := range c.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// Recipients returns the members other than senderID.
func (c *Chat) Recipients(senderID string) []string {
	out := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		if u != senderID {
			out = append(out, u)
		}
	}
	return out
}
