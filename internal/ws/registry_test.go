package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	c := &Client{ID: "conn-1"}

	_, ok := r.Lookup("a1")
	assert.False(t, ok)

	prev := r.Register("a1", c)
	assert.Nil(t, prev)

	got, ok := r.Lookup("a1")
	assert.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Count())

	assert.True(t, r.Unregister("a1", c))
	_, ok = r.Lookup("a1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistrySupersessionReturnsPrevious(t *testing.T) {
	r := NewRegistry()
	c1 := &Client{ID: "conn-1"}
	c2 := &Client{ID: "conn-2"}

	assert.Nil(t, r.Register("a1", c1))
	prev := r.Register("a1", c2)
	assert.Same(t, c1, prev)

	got, ok := r.Lookup("a1")
	assert.True(t, ok)
	assert.Same(t, c2, got)
}

func TestRegistryStaleUnregisterKeepsNewerRegistration(t *testing.T) {
	r := NewRegistry()
	c1 := &Client{ID: "conn-1"}
	c2 := &Client{ID: "conn-2"}

	r.Register("a1", c1)
	r.Register("a1", c2)

	// The superseded connection's disconnect must not evict the newer entry
	assert.False(t, r.Unregister("a1", c1))

	got, ok := r.Lookup("a1")
	assert.True(t, ok)
	assert.Same(t, c2, got)
}

func TestRegistryReregisterSameClient(t *testing.T) {
	r := NewRegistry()
	c := &Client{ID: "conn-1"}

	r.Register("a1", c)
	prev := r.Register("a1", c)
	assert.Nil(t, prev, "re-registering the same connection supersedes nothing")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%10)
			c := &Client{ID: fmt.Sprintf("conn-%d", i)}
			r.Register(userID, c)
			r.Lookup(userID)
			r.Unregister(userID, c)
			r.Count()
		}(i)
	}
	wg.Wait()

	// Every remaining entry must be a connection that was never unregistered
	assert.LessOrEqual(t, r.Count(), 10)
}
