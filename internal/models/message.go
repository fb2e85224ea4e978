package models

import (
	"time"
)

// Message represents a single direct message between two users. The record is
// written before any delivery attempt; Delivered and Read are the only fields
// that are ever updated afterwards.
type Message struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"index"`
	SenderID       string    `json:"sender_id" gorm:"index"`
	ReceiverID     string    `json:"receiver_id" gorm:"index"`
	Body           string    `json:"body"`
	Delivered      bool      `json:"delivered" gorm:"default:false"`
	Read           bool      `json:"read" gorm:"default:false"`
	Timestamp      time.Time `json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationKey derives the grouping key for all messages between two users.
// The two ids are ordered lexicographically before joining, so both
// participants compute the same key regardless of argument order. A mismatch
// here would silently split a conversation's history in two.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
