package ws

import (
	"sync"
)

// Registry maps a user id to its single live connection. It is the one shared
// mutable structure in the relay; every operation holds the lock for the
// duration of the map access and nothing else, so no registry call can block
// on the network or the database.
//
// At most one connection is registered per user id. A second Register for the
// same id supersedes the first; the superseded connection's eventual
// disconnect must not evict the newer entry, which is what the guarded
// Unregister enforces.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Client)}
}

// Register installs the connection for a user id and returns the connection
// it superseded, if any. No error is signaled on overwrite.
func (r *Registry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Lookup returns the live connection for a user id, if one is registered
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	return c, ok
}

// Unregister removes the mapping only if the registered connection is c, and
// reports whether it removed anything. A stale disconnect from a superseded
// connection is a no-op here.
func (r *Registry) Unregister(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] != c {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Count returns the number of registered (identified) users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
