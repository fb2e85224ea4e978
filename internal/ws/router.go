package ws

import (
	"time"

	"direct-chat-relay/backend/internal/models"
)

// route dispatches one inbound event. Unknown or malformed events are dropped
// with a diagnostic; nothing here ever terminates the connection or escalates
// past this function.
func (h *Hub) route(c *Client, event Event) {
	switch event.Type {
	case EventAnnounceIdentity:
		h.handleAnnounce(c, event)
	case EventTypingStart, EventTypingStop:
		h.handleTyping(c, event)
	case EventSendMessage:
		h.handleSendMessage(c, event)
	case EventReadReceipt:
		h.handleReadReceipt(c, event)
	default:
		h.log.Debug("Unknown event type dropped", "conn_id", c.ID, "type", event.Type)
	}
}

func (h *Hub) handleAnnounce(c *Client, event Event) {
	if c.UserID != "" {
		h.log.Debug("Duplicate identity announcement ignored", "conn_id", c.ID, "user_id", c.UserID)
		return
	}

	var payload AnnouncePayload
	if err := decodeContent(event.Content, &payload); err != nil {
		h.log.Warn("Malformed announce payload dropped", "conn_id", c.ID, "error", err.Error())
		return
	}

	// The token-verified identity wins; the payload id is informational only
	if payload.UserID != "" && payload.UserID != c.authUserID {
		h.log.Debug("Announce payload id differs from verified identity",
			"conn_id", c.ID, "claimed", payload.UserID, "verified", c.authUserID)
	}

	h.identify(c, c.authUserID)
}

// handleTyping forwards a typing indicator to the target's live connection,
// if there is one. Typing state is ephemeral and stale-tolerant: an offline
// target means the event is silently dropped.
func (h *Hub) handleTyping(c *Client, event Event) {
	if c.UserID == "" {
		h.log.Debug("Typing event from unidentified connection dropped", "conn_id", c.ID)
		return
	}

	var payload TypingPayload
	if err := decodeContent(event.Content, &payload); err != nil {
		h.log.Warn("Malformed typing payload dropped", "conn_id", c.ID, "error", err.Error())
		return
	}

	target, ok := h.registry.Lookup(payload.To)
	if !ok {
		return
	}

	target.sendEvent(event.Type, TypingPayload{From: c.UserID, To: payload.To})
}

// handleSendMessage persists the message before any delivery attempt, then
// routes it. Durability never depends on the receiver being online; the
// delivered flag flip is best-effort bookkeeping on top of the stored record.
func (h *Hub) handleSendMessage(c *Client, event Event) {
	if c.UserID == "" {
		c.sendError("NOT_IDENTIFIED", "Announce your identity before sending messages")
		return
	}

	var payload SendMessagePayload
	if err := decodeContent(event.Content, &payload); err != nil {
		h.log.Warn("Malformed send payload dropped", "conn_id", c.ID, "error", err.Error())
		return
	}

	if payload.ReceiverID == "" || payload.Body == "" {
		c.sendError("INVALID_MESSAGE", "Message requires a receiver and a body")
		return
	}
	if len(payload.Body) > h.maxMessageBody {
		c.sendError("MESSAGE_TOO_LONG", "Message body exceeds the allowed length")
		return
	}

	msg := &models.Message{
		ConversationID: models.ConversationKey(c.UserID, payload.ReceiverID),
		SenderID:       c.UserID,
		ReceiverID:     payload.ReceiverID,
		Body:           payload.Body,
		Timestamp:      time.Now().UTC(),
	}

	if err := h.messages.Append(msg); err != nil {
		h.log.LogError(err, "Failed to persist message", "sender_id", c.UserID, "receiver_id", payload.ReceiverID)
		c.sendError("SEND_FAILED", "Message could not be stored")
		return
	}

	if receiver, ok := h.registry.Lookup(payload.ReceiverID); ok {
		msg.Delivered = true
		receiver.sendEvent(EventMessageNew, msg)

		// Best-effort: on failure the stored record under-reports delivery,
		// which degrades bookkeeping, not message content
		if err := h.messages.MarkDelivered(msg.ID); err != nil {
			h.log.LogError(err, "Failed to flip delivered flag", "message_id", msg.ID)
		}
	}

	c.sendEvent(EventMessageSent, msg)
	h.metrics.MessageRelayed(msg.Delivered)
}

// handleReadReceipt marks the named message read and notifies its original
// sender if that sender is online. An id that resolves to nothing is a silent
// no-op.
func (h *Hub) handleReadReceipt(c *Client, event Event) {
	if c.UserID == "" {
		h.log.Debug("Read receipt from unidentified connection dropped", "conn_id", c.ID)
		return
	}

	var payload ReadReceiptPayload
	if err := decodeContent(event.Content, &payload); err != nil {
		h.log.Warn("Malformed read receipt dropped", "conn_id", c.ID, "error", err.Error())
		return
	}

	msg, err := h.messages.MarkRead(payload.MessageID)
	if err != nil {
		h.log.LogError(err, "Failed to flip read flag", "message_id", payload.MessageID)
		return
	}
	if msg == nil {
		return
	}

	if sender, ok := h.registry.Lookup(msg.SenderID); ok {
		sender.sendEvent(EventMessageRead, ReadNotifyPayload{MessageID: msg.ID})
	}
}
