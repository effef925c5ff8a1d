package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_PutGetRemove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given no session exists
	_, ok := registry.Get("c1")
	req.False(ok)

	// When a session is stored
	registry.Put("c1", Session{DisplayName: "alice", RoomID: "r"})

	// Then it is keyed by connection id
	s, ok := registry.Get("c1")
	req.True(ok)
	req.Equal(Session{ConnectionID: "c1", DisplayName: "alice", RoomID: "r"}, s)
	req.Equal(1, registry.Len())

	registry.Remove("c1")
	registry.Remove("c1")
	req.Zero(registry.Len())
}

func TestRoomTable_EnsureIsIdempotent(t *testing.T) {
	req := require.New(t)
	table := NewRoomTable()

	first := table.Ensure("r1")
	second := table.Ensure("r1")

	req.Same(first, second)
	req.Equal(1, table.Len())
}

func TestRoomTable_RemoveIfEmpty(t *testing.T) {
	req := require.New(t)
	table := NewRoomTable()
	room := table.Ensure("r1")
	room.Add(Member{Username: "alice", ConnectionID: "c1"})

	// A populated room is kept
	req.False(table.RemoveIfEmpty("r1"))
	req.Equal(1, table.Len())

	// Once empty it goes away
	_, removed := room.Remove("c1")
	req.True(removed)
	req.True(table.RemoveIfEmpty("r1"))
	_, ok := table.Get("r1")
	req.False(ok)

	// Unknown rooms are a no-op
	req.False(table.RemoveIfEmpty("missing"))
}

func TestRoomTable_ListFollowsCreationOrder(t *testing.T) {
	req := require.New(t)
	table := NewRoomTable()
	for _, id := range []string{"b", "a", "c"} {
		table.Ensure(id).Add(Member{Username: id, ConnectionID: "conn-" + id})
	}
	table.Ensure("a").Add(Member{Username: "x", ConnectionID: "conn-x"})

	req.Equal([]RoomSummary{
		{RoomID: "b", UserCount: 1},
		{RoomID: "a", UserCount: 2},
		{RoomID: "c", UserCount: 1},
	}, table.List())
}

func TestRoom_AddRejectsDuplicates(t *testing.T) {
	req := require.New(t)
	room := newRoom("r")

	req.True(room.Add(Member{Username: "alice", ConnectionID: "c1"}))
	req.False(room.Add(Member{Username: "alice again", ConnectionID: "c1"}))
	req.True(room.Add(Member{Username: "alice", ConnectionID: "c2"}))

	req.Equal([]string{"c1", "c2"}, room.ConnectionIDs())
	_, removed := room.Remove("nope")
	req.False(removed)
}

func TestRoom_SnapshotDoesNotAlias(t *testing.T) {
	req := require.New(t)
	room := newRoom("r")
	room.Add(Member{Username: "alice", ConnectionID: "c1"})

	snap := room.Snapshot()
	snap[0].Username = "mallory"

	req.Equal("alice", room.Snapshot()[0].Username)
	req.NotNil(newRoom("empty").Snapshot())
}
