package server

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

// newDetachedClient builds a client without a socket and places it directly
// in the hub map so no pumps are started.
func newDetachedClient(h *Hub, id string, buffer int) *Client {
	c := &Client{id: id, send: make(chan []byte, buffer), hub: h, addr: "test", log: h.log}
	h.mutex.Lock()
	h.clients[id] = c
	h.mutex.Unlock()
	return c
}

func newTestHub(t *testing.T) (*Hub, *presence.Coordinator) {
	t.Helper()
	var coord *presence.Coordinator
	metrics := NewMetrics(func() presence.Stats { return coord.Stats() })
	hub := NewHub(metrics, testLogger())
	coord = presence.NewCoordinator(hub, testLogger())
	hub.attach(coord)
	return hub, coord
}

func TestHub_SendToUnknownConnection(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)

	req.False(hub.Send("ghost", []byte(`{}`)))
	req.Equal(1.0, testutil.ToFloat64(hub.metrics.dropped))
}

func TestHub_SendQueuesFrame(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	client := newDetachedClient(hub, "c1", 1)

	req.True(hub.Send("c1", []byte("frame")))
	req.Equal([]byte("frame"), <-client.send)
	req.Equal(1.0, testutil.ToFloat64(hub.metrics.delivered))
}

func TestHub_FullBufferEvictsClient(t *testing.T) {
	req := require.New(t)
	hub, coord := newTestHub(t)

	// Given two members of r1, one of them with a single-slot buffer already full
	slow := newDetachedClient(hub, "slow", 1)
	fast := newDetachedClient(hub, "fast", 16)
	slow.send <- []byte("stuck")
	req.True(coord.Join("slow", "r1", "slowpoke"))
	req.True(coord.Join("fast", "r1", "speedy"))

	// When the hub loop picks up the pending evictions
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	// Then the slow client is unregistered and its session dropped
	req.Eventually(func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool {
		_, ok := coord.Session("slow")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// And the survivor was told
	var types []string
	for len(fast.send) > 0 {
		f := <-fast.send
		types = append(types, string(f))
	}
	req.NotEmpty(types)
	req.Contains(types[len(types)-2], presence.EventUserLeft)
	req.True(slow.closed)
}

func TestHub_EvictedClientCannotRejoin(t *testing.T) {
	req := require.New(t)
	hub, coord := newTestHub(t)

	// Given a slow client evicted from r1
	slow := newDetachedClient(hub, "slow", 1)
	newDetachedClient(hub, "fast", 16)
	slow.send <- []byte("stuck")
	req.True(coord.Join("slow", "r1", "slowpoke"))
	req.True(coord.Join("fast", "r1", "speedy"))

	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	req.Eventually(func() bool {
		_, ok := coord.Session("slow")
		return hub.Len() == 1 && !ok
	}, 2*time.Second, 10*time.Millisecond)

	// When its read pump delivers one more join
	applied := slow.processMessage([]byte(`{"type":"join-room","payload":{"roomId":"r1","username":"ghost"}}`))

	// Then the frame is dropped and no session is recreated
	req.False(applied)
	_, ok := coord.Session("slow")
	req.False(ok)
	room, ok := coord.GetRoom("r1")
	req.True(ok)
	req.Len(room.Users, 1)
	req.Equal("speedy", room.Users[0].Username)
}

func TestHub_UnregisterOfRemovedClientDropsSession(t *testing.T) {
	req := require.New(t)
	hub, coord := newTestHub(t)

	// Given a session whose client is no longer in the hub map
	client := &Client{id: "gone", send: make(chan []byte, 1), hub: hub, addr: "test", log: hub.log}
	req.True(coord.Join("gone", "r1", "late"))

	// When the client's late unregister arrives
	hub.handleUnregister(client)

	// Then the session and its room are gone
	_, ok := coord.Session("gone")
	req.False(ok)
	_, ok = coord.GetRoom("r1")
	req.False(ok)
}

func TestHub_NotifyReachesSingleClient(t *testing.T) {
	req := require.New(t)
	hub, coord := newTestHub(t)
	a := newDetachedClient(hub, "a", 4)
	b := newDetachedClient(hub, "b", 4)

	// When a connected event is addressed to a
	req.True(coord.Notify("a", ConnectedEvent{ConnectionID: "a"}))

	// Then only a has it queued
	req.Len(a.send, 1)
	req.JSONEq(`{"type":"connected","payload":{"connectionId":"a"}}`, string(<-a.send))
	req.Empty(b.send)
}

func TestHub_RegisterAfterShutdown(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	go hub.Run()

	req.NoError(hub.Shutdown(time.Second))
	req.False(hub.Register(&Client{id: "late"}))
}
