package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyRegistersAndBroadcastsPresence(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	peer := h.NewClient("conn-peer", "b1")
	h.identify(peer, "b1")
	drainEvents(peer)

	c := h.NewClient("conn-a", "a1")
	h.identify(c, "a1")

	got, ok := h.registry.Lookup("a1")
	require.True(t, ok)
	assert.Same(t, c, got)

	// Every open connection hears about the transition, the new one included
	var payload PresencePayload
	event := nextEvent(t, peer)
	assert.Equal(t, EventPresenceChanged, event.Type)
	require.NoError(t, decodeContent(event.Content, &payload))
	assert.Equal(t, "a1", payload.UserID)
	assert.True(t, payload.IsOnline)

	event = nextEvent(t, c)
	assert.Equal(t, EventPresenceChanged, event.Type)

	calls := identity.callsFor("a1")
	require.Len(t, calls, 1)
	assert.True(t, calls[0].online)
}

func TestDisconnectClearsRegistryAndBroadcastsOffline(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	a := h.NewClient("conn-a", "a1")
	h.identify(a, "a1")
	b := h.NewClient("conn-b", "b1")
	h.identify(b, "b1")
	drainEvents(a)
	drainEvents(b)

	h.dropClient(a)

	_, ok := h.registry.Lookup("a1")
	assert.False(t, ok)

	var payload PresencePayload
	event := nextEvent(t, b)
	assert.Equal(t, EventPresenceChanged, event.Type)
	require.NoError(t, decodeContent(event.Content, &payload))
	assert.Equal(t, "a1", payload.UserID)
	assert.False(t, payload.IsOnline)

	calls := identity.callsFor("a1")
	require.Len(t, calls, 2)
	assert.False(t, calls[1].online)
	assert.False(t, calls[1].lastSeen.IsZero())
}

func TestDisconnectBeforeIdentifyHasNoSideEffects(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	b := h.NewClient("conn-b", "b1")
	h.identify(b, "b1")
	drainEvents(b)

	// Connected -> Closed directly: nothing was registered
	c := h.NewClient("conn-a", "a1")
	h.dropClient(c)

	noEvent(t, b)
	assert.Empty(t, identity.callsFor("a1"))
	assert.Equal(t, 1, h.ActiveConnections())
}

func TestDoubleCloseRunsSideEffectsOnce(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	a := h.NewClient("conn-a", "a1")
	h.identify(a, "a1")

	h.dropClient(a)
	h.dropClient(a)

	calls := identity.callsFor("a1")
	require.Len(t, calls, 2, "one online and exactly one offline update")
	assert.True(t, calls[0].online)
	assert.False(t, calls[1].online)
}

func TestSupersededDisconnectKeepsUserOnline(t *testing.T) {
	identity := &fakeIdentityStore{}
	h := newTestHub(identity, newFakeMessageStore())

	observer := h.NewClient("conn-obs", "c1")
	h.identify(observer, "c1")

	old := h.NewClient("conn-old", "a1")
	h.identify(old, "a1")

	newer := h.NewClient("conn-new", "a1")
	h.identify(newer, "a1")

	// The superseded connection was told to shut down
	select {
	case <-old.done:
	default:
		t.Fatal("superseded connection was not stopped")
	}

	drainEvents(observer)

	// Its disconnect must neither evict the newer registration nor go offline
	h.dropClient(old)

	got, ok := h.registry.Lookup("a1")
	require.True(t, ok)
	assert.Same(t, newer, got)

	noEvent(t, observer)

	for _, call := range identity.callsFor("a1") {
		assert.True(t, call.online, "no offline update may fire while the newer connection lives")
	}
}
