package ws

import (
	"strings"
	"testing"

	"direct-chat-relay/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func announce(h *Hub, c *Client) {
	h.route(c, Event{Type: EventAnnounceIdentity, Content: map[string]interface{}{"userId": c.authUserID}})
	drainEvents(c)
}

func TestAnnounceBindsVerifiedIdentity(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	c := h.NewClient("conn-a", "a1")
	// The payload claims someone else; the token-verified identity must win
	h.route(c, Event{Type: EventAnnounceIdentity, Content: map[string]interface{}{"userId": "impostor"}})

	assert.Equal(t, "a1", c.UserID)
	_, ok := h.registry.Lookup("impostor")
	assert.False(t, ok)
	got, ok := h.registry.Lookup("a1")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestDuplicateAnnounceIgnored(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	c := h.NewClient("conn-a", "a1")
	announce(h, c)
	announce(h, c)

	assert.Len(t, identity.callsFor("a1"), 1)
}

func TestSendToOnlineReceiver(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)
	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)
	drainEvents(sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "b1",
		"body":       "hello",
	}})

	var inbound models.Message
	event := nextEvent(t, receiver)
	assert.Equal(t, EventMessageNew, event.Type)
	require.NoError(t, decodeContent(event.Content, &inbound))
	assert.Equal(t, "a1", inbound.SenderID)
	assert.Equal(t, "b1", inbound.ReceiverID)
	assert.Equal(t, "hello", inbound.Body)
	assert.True(t, inbound.Delivered)
	assert.False(t, inbound.Timestamp.IsZero())

	var ack models.Message
	event = nextEvent(t, sender)
	assert.Equal(t, EventMessageSent, event.Type)
	require.NoError(t, decodeContent(event.Content, &ack))
	assert.Equal(t, inbound.ID, ack.ID, "ack and delivery must name the same stored record")

	rec, ok := store.record(ack.ID)
	require.True(t, ok)
	assert.Equal(t, models.ConversationKey("a1", "b1"), rec.ConversationID)
	assert.Contains(t, store.delivered, ack.ID)
}

func TestSendToOfflineReceiverPersistsUndelivered(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "offline-user",
		"body":       "are you there?",
	}})

	var ack models.Message
	event := nextEvent(t, sender)
	assert.Equal(t, EventMessageSent, event.Type)
	require.NoError(t, decodeContent(event.Content, &ack))
	assert.NotZero(t, ack.ID)
	assert.False(t, ack.Delivered)

	rec, ok := store.record(ack.ID)
	require.True(t, ok)
	assert.False(t, rec.Delivered)
	assert.Empty(t, store.delivered)
}

func TestSendIgnoresClaimedSenderID(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"senderId":   "spoofed",
		"receiverId": "b1",
		"body":       "hi",
	}})

	var ack models.Message
	event := nextEvent(t, sender)
	require.NoError(t, decodeContent(event.Content, &ack))
	assert.Equal(t, "a1", ack.SenderID)
}

func TestSendFromUnidentifiedConnectionRejected(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	c := h.NewClient("conn-a", "a1")
	h.route(c, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "b1",
		"body":       "hi",
	}})

	var errPayload ErrorPayload
	event := nextEvent(t, c)
	assert.Equal(t, EventError, event.Type)
	require.NoError(t, decodeContent(event.Content, &errPayload))
	assert.Equal(t, "NOT_IDENTIFIED", errPayload.Code)
	assert.Empty(t, store.records)
}

func TestSendValidation(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)

	cases := []struct {
		name    string
		content map[string]interface{}
		code    string
	}{
		{"missing receiver", map[string]interface{}{"body": "hi"}, "INVALID_MESSAGE"},
		{"empty body", map[string]interface{}{"receiverId": "b1", "body": ""}, "INVALID_MESSAGE"},
		{"oversized body", map[string]interface{}{
			"receiverId": "b1",
			"body":       strings.Repeat("x", h.maxMessageBody+1),
		}, "MESSAGE_TOO_LONG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.route(sender, Event{Type: EventSendMessage, Content: tc.content})

			var errPayload ErrorPayload
			event := nextEvent(t, sender)
			assert.Equal(t, EventError, event.Type)
			require.NoError(t, decodeContent(event.Content, &errPayload))
			assert.Equal(t, tc.code, errPayload.Code)
		})
	}
}

func TestSendStoreFailureReportsToSenderOnly(t *testing.T) {
	store := newFakeMessageStore()
	store.failAppend = true
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)
	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)
	drainEvents(sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "b1",
		"body":       "hello",
	}})

	var errPayload ErrorPayload
	event := nextEvent(t, sender)
	assert.Equal(t, EventError, event.Type)
	require.NoError(t, decodeContent(event.Content, &errPayload))
	assert.Equal(t, "SEND_FAILED", errPayload.Code)

	noEvent(t, receiver)
}

func TestSendDeliveredFlagFailureStillAcks(t *testing.T) {
	store := newFakeMessageStore()
	store.failDelivered = true
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)
	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)
	drainEvents(sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "b1",
		"body":       "hello",
	}})

	// The bookkeeping failure degrades nothing visible: both sides get events
	event := nextEvent(t, receiver)
	assert.Equal(t, EventMessageNew, event.Type)
	event = nextEvent(t, sender)
	assert.Equal(t, EventMessageSent, event.Type)
}

func TestTypingForwardedToOnlineTarget(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	a := h.NewClient("conn-a", "a1")
	announce(h, a)
	b := h.NewClient("conn-b", "b1")
	announce(h, b)
	drainEvents(a)

	h.route(a, Event{Type: EventTypingStart, Content: map[string]interface{}{
		"from": "spoofed",
		"to":   "b1",
	}})

	var payload TypingPayload
	event := nextEvent(t, b)
	assert.Equal(t, EventTypingStart, event.Type)
	require.NoError(t, decodeContent(event.Content, &payload))
	assert.Equal(t, "a1", payload.From, "from must be the connection's identity, not the payload's claim")
	assert.Equal(t, "b1", payload.To)

	h.route(a, Event{Type: EventTypingStop, Content: map[string]interface{}{"to": "b1"}})
	event = nextEvent(t, b)
	assert.Equal(t, EventTypingStop, event.Type)
}

func TestTypingToOfflineTargetDropped(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	a := h.NewClient("conn-a", "a1")
	announce(h, a)

	h.route(a, Event{Type: EventTypingStart, Content: map[string]interface{}{"to": "ghost"}})
	noEvent(t, a)
}

func TestReadReceiptNotifiesOnlineSender(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	sender := h.NewClient("conn-a", "a1")
	announce(h, sender)
	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)
	drainEvents(sender)

	h.route(sender, Event{Type: EventSendMessage, Content: map[string]interface{}{
		"receiverId": "b1",
		"body":       "hello",
	}})
	drainEvents(sender)
	drainEvents(receiver)

	h.route(receiver, Event{Type: EventReadReceipt, Content: map[string]interface{}{"messageId": 1}})

	var payload ReadNotifyPayload
	event := nextEvent(t, sender)
	assert.Equal(t, EventMessageRead, event.Type)
	require.NoError(t, decodeContent(event.Content, &payload))
	assert.Equal(t, uint(1), payload.MessageID)
	noEvent(t, sender)

	rec, ok := store.record(1)
	require.True(t, ok)
	assert.True(t, rec.Read)
	assert.True(t, rec.Delivered, "a read message is by definition delivered")
}

func TestReadReceiptOfflineSenderUpdatesStoreOnly(t *testing.T) {
	store := newFakeMessageStore()
	h := newTestHub(&fakeIdentityStore{}, store)

	// Seed a record whose sender never connects
	msg := &models.Message{SenderID: "gone", ReceiverID: "b1", Body: "hi"}
	require.NoError(t, store.Append(msg))

	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)

	h.route(receiver, Event{Type: EventReadReceipt, Content: map[string]interface{}{"messageId": msg.ID}})

	rec, ok := store.record(msg.ID)
	require.True(t, ok)
	assert.True(t, rec.Read)
	noEvent(t, receiver)
}

func TestReadReceiptUnknownIDIsNoOp(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	receiver := h.NewClient("conn-b", "b1")
	announce(h, receiver)

	h.route(receiver, Event{Type: EventReadReceipt, Content: map[string]interface{}{"messageId": 999}})
	noEvent(t, receiver)
}

func TestUnknownEventTypeDropped(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	c := h.NewClient("conn-a", "a1")
	announce(h, c)

	h.route(c, Event{Type: "jump", Content: nil})
	noEvent(t, c)
}

func TestMalformedPayloadDropped(t *testing.T) {
	h := newTestHub(&fakeIdentityStore{}, newFakeMessageStore())

	c := h.NewClient("conn-a", "a1")
	announce(h, c)

	// Content that cannot re-marshal into the typed payload
	h.route(c, Event{Type: EventTypingStart, Content: "not-an-object"})
	h.route(c, Event{Type: EventReadReceipt, Content: map[string]interface{}{"messageId": "not-a-number"}})
	noEvent(t, c)
}
