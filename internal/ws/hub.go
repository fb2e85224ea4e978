package ws

import (
	"sync"
	"time"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/pkg/logger"
)

// IdentityStore is the slice of the user store the session lifecycle needs:
// flipping the presence flag and refreshing the last-seen timestamp.
type IdentityStore interface {
	SetPresence(userID string, online bool, lastSeen time.Time) error
}

// MessageStore is the slice of the message store the event router needs.
// Append assigns the record's id and timestamp. MarkRead returns the updated
// record, or nil when the id resolves to nothing.
type MessageStore interface {
	Append(msg *models.Message) error
	MarkDelivered(id uint) error
	MarkRead(id uint) (*models.Message, error)
}

// Hub owns the set of open connections and the user registry, and runs the
// session lifecycle transitions. Store calls are never made while holding
// either lock.
type Hub struct {
	mu    sync.Mutex
	conns map[*Client]bool

	registry *Registry
	identity IdentityStore
	messages MessageStore
	log      *logger.Logger
	metrics  *Metrics

	maxMessageBody int
	sendBufferSize int
}

// HubOptions tunes per-connection limits
type HubOptions struct {
	MaxMessageBody int
	SendBufferSize int
}

// DefaultHubOptions returns sensible defaults
func DefaultHubOptions() HubOptions {
	return HubOptions{
		MaxMessageBody: 4096,
		SendBufferSize: 256,
	}
}

// NewHub creates a hub over the given registry and stores
func NewHub(registry *Registry, identity IdentityStore, messages MessageStore, log *logger.Logger, opts HubOptions) *Hub {
	if opts.MaxMessageBody <= 0 {
		opts.MaxMessageBody = DefaultHubOptions().MaxMessageBody
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = DefaultHubOptions().SendBufferSize
	}

	return &Hub{
		conns:          make(map[*Client]bool),
		registry:       registry,
		identity:       identity,
		messages:       messages,
		log:            log,
		metrics:        NewMetrics(log),
		maxMessageBody: opts.MaxMessageBody,
		sendBufferSize: opts.SendBufferSize,
	}
}

// Registry exposes the connection registry (health checks, tests)
func (h *Hub) Registry() *Registry {
	return h.registry
}

// NewClient wires a client into the hub in the Connected state. The caller
// supplies the identity already verified from the token; the connection stays
// unregistered until it announces.
func (h *Hub) NewClient(connID, authUserID string) *Client {
	c := &Client{
		ID:         connID,
		authUserID: authUserID,
		Send:       make(chan []byte, h.sendBufferSize),
		done:       make(chan struct{}),
		hub:        h,
	}

	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Info("Connection opened", "conn_id", connID, "user_id", authUserID)

	return c
}

// ActiveConnections returns the number of open connections, identified or not
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// identify runs the Connected -> Identified transition: install the registry
// entry, mark the user online, tell everyone. A previous connection for the
// same user is superseded and shut down; its disconnect will find the guarded
// unregister refusing to evict this registration.
func (h *Hub) identify(c *Client, userID string) {
	c.UserID = userID

	if prev := h.registry.Register(userID, c); prev != nil {
		h.log.Info("Superseding earlier connection", "user_id", userID, "old_conn_id", prev.ID, "new_conn_id", c.ID)
		prev.stop()
	}

	if err := h.identity.SetPresence(userID, true, time.Now().UTC()); err != nil {
		h.log.LogError(err, "Failed to mark user online", "user_id", userID)
	}

	h.broadcastPresence(userID, true)
	h.log.Info("Connection identified", "conn_id", c.ID, "user_id", userID)
}

// dropClient runs the Identified -> Closed (or Connected -> Closed)
// transition exactly once. Presence side effects only fire when this
// connection still owned its registry entry; a superseded connection leaves
// the newer registration and the user's online state untouched.
func (h *Hub) dropClient(c *Client) {
	c.closeOnce.Do(func() {
		c.stop()

		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()

		h.metrics.ConnectionClosed()

		if c.UserID == "" {
			h.log.Info("Connection closed before identifying", "conn_id", c.ID)
			return
		}

		if !h.registry.Unregister(c.UserID, c) {
			h.log.Info("Superseded connection closed", "conn_id", c.ID, "user_id", c.UserID)
			return
		}

		if err := h.identity.SetPresence(c.UserID, false, time.Now().UTC()); err != nil {
			h.log.LogError(err, "Failed to mark user offline", "user_id", c.UserID)
		}

		h.broadcastPresence(c.UserID, false)
		h.log.Info("Connection closed", "conn_id", c.ID, "user_id", c.UserID)
	})
}

// broadcastPresence fans an online/offline transition out to every open
// connection. Best-effort: a full send queue just misses the event.
func (h *Hub) broadcastPresence(userID string, online bool) {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.sendEvent(EventPresenceChanged, PresencePayload{UserID: userID, IsOnline: online})
	}

	h.metrics.PresenceBroadcast()
}

// Shutdown closes every open connection
func (h *Hub) Shutdown() {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.stop()
	}
}
