package ws

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/pkg/logger"

	"github.com/stretchr/testify/require"
)

// presenceCall records one SetPresence invocation
type presenceCall struct {
	userID   string
	online   bool
	lastSeen time.Time
}

type fakeIdentityStore struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (f *fakeIdentityStore) SetPresence(userID string, online bool, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presenceCall{userID: userID, online: online, lastSeen: lastSeen})
	return nil
}

func (f *fakeIdentityStore) callsFor(userID string) []presenceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []presenceCall
	for _, call := range f.calls {
		if call.userID == userID {
			out = append(out, call)
		}
	}
	return out
}

type fakeMessageStore struct {
	mu            sync.Mutex
	nextID        uint
	records       map[uint]models.Message
	failAppend    bool
	delivered     []uint
	failDelivered bool
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1, records: make(map[uint]models.Message)}
}

func (f *fakeMessageStore) Append(msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return errors.New("store unavailable")
	}
	msg.ID = f.nextID
	f.nextID++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	f.records[msg.ID] = *msg
	return nil
}

func (f *fakeMessageStore) MarkDelivered(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelivered {
		return errors.New("store unavailable")
	}
	rec, ok := f.records[id]
	if !ok {
		return errors.New("no such message")
	}
	rec.Delivered = true
	f.records[id] = rec
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeMessageStore) MarkRead(id uint) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	rec.Read = true
	rec.Delivered = true
	f.records[id] = rec
	out := rec
	return &out, nil
}

func (f *fakeMessageStore) record(id uint) (models.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

func newTestHub(identity *fakeIdentityStore, messages *fakeMessageStore) *Hub {
	log := logger.New(logger.Config{Level: "error", JSON: false, Output: io.Discard})
	return NewHub(NewRegistry(), identity, messages, log, DefaultHubOptions())
}

// nextEvent pops the next queued outbound event for a client
func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	default:
		t.Fatalf("no event queued for client %s", c.ID)
		return Event{}
	}
}

// noEvent asserts a client's queue is empty
func noEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected event for client %s: %s", c.ID, raw)
	default:
	}
}

// drainEvents discards everything queued so far
func drainEvents(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}
