package model

import "time"

// DeliveryStatus is the lifecycle stage of a persisted message.
// Statuses only ever move forward: sent -> delivered -> seen.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusSeen      DeliveryStatus = "seen"
)

var statusRank = map[DeliveryStatus]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusSeen:      2,
}

// Valid reports whether s is one of the known statuses.
func (s DeliveryStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Before reports whether s comes strictly earlier than other in the lifecycle.
// Unknown statuses rank below sent so they never overwrite a real status.
func (s DeliveryStatus) Before(other DeliveryStatus) bool {
	return statusRank[s] < statusRank[other]
}

type Message struct {
	ID        int64          `json:"id"`
	ChatID    string         `json:"chat_id"`
	SenderID  string         `json:"sender_id"`
	Content   string         `json:"content"`
	Status    DeliveryStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
