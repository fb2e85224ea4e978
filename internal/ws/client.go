package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum event size allowed from peer
	maxMessageSize = 64 * 1024 // 64KB
)

// Client is one live websocket connection. authUserID is the identity
// verified from the token at upgrade time; UserID is set once the client has
// announced itself and the registry entry is installed.
//
// UserID is written and read only on the client's reader goroutine (identify
// runs inside ReadPump, and the Closed transition runs on ReadPump's exit),
// so it needs no lock.
type Client struct {
	ID         string
	UserID     string
	authUserID string

	Conn *websocket.Conn
	Send chan []byte

	hub       *Hub
	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

// stop signals the write pump to send a close frame and tear down the
// transport. Safe to call from any goroutine, any number of times; the
// reader's exit then runs the Closed transition.
func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// sendEvent marshals an event into the client's send queue. The enqueue is
// non-blocking: a client whose queue is full just misses the event, the same
// as a client that disconnected between lookup and delivery.
func (c *Client) sendEvent(eventType string, content interface{}) {
	raw, err := json.Marshal(Event{Type: eventType, Content: content})
	if err != nil {
		c.hub.log.LogError(err, "Failed to marshal outbound event", "type", eventType)
		return
	}

	select {
	case <-c.done:
	case c.Send <- raw:
	default:
		c.hub.log.Warn("Dropping event for slow client", "conn_id", c.ID, "type", eventType)
	}
}

// sendError reports a local failure to the client's own connection
func (c *Client) sendError(code, message string) {
	c.sendEvent(EventError, ErrorPayload{Code: code, Message: message})
}

// ReadPump reads inbound events until the transport drops, then runs the
// Closed transition exactly once. Malformed payloads are skipped, never
// escalated; an unreadable frame counts as a disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.dropClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("Unexpected close", "conn_id", c.ID, "error", err.Error())
			}
			break
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Warn("Malformed event dropped", "conn_id", c.ID, "error", err.Error())
			continue
		}

		c.hub.route(c, event)
	}
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case raw := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

			// Flush anything else already queued as separate frames
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
