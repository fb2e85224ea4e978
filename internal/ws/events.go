package ws

import (
	"encoding/json"
)

// Inbound event types
const (
	EventAnnounceIdentity = "announce-identity"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"
	EventSendMessage      = "send-message"
	EventReadReceipt      = "read-receipt"
)

// Outbound event types
const (
	EventPresenceChanged = "presence-changed"
	EventMessageSent     = "message-sent"
	EventMessageNew      = "message-new"
	EventMessageRead     = "message-read"
	EventError           = "error"
)

// Event is the envelope for everything that crosses the websocket, in both
// directions. Content is shaped per event type.
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// AnnouncePayload carries the identity announcement. The user id must match
// the identity already verified at upgrade time; the connection's verified id
// always wins.
type AnnouncePayload struct {
	UserID string `json:"userId"`
}

// TypingPayload carries a typing indicator between two users
type TypingPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SendMessagePayload carries an outgoing message. SenderID is accepted for
// wire compatibility but ignored; the connection's identified user is the
// sender.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
}

// ReadReceiptPayload names a message the receiver's client has displayed
type ReadReceiptPayload struct {
	MessageID uint `json:"messageId"`
}

// PresencePayload is broadcast to every open connection on any
// online/offline transition
type PresencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// ReadNotifyPayload is sent to the original sender when a message is read
type ReadNotifyPayload struct {
	MessageID uint `json:"messageId"`
}

// ErrorPayload reports a local failure to the connection's own client
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeContent re-marshals an event's content into a typed payload
func decodeContent(content interface{}, out interface{}) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
