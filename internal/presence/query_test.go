package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinator_QueriesDoNotMutate(t *testing.T) {
	req := require.New(t)
	c, rec := newTestCoordinator()
	c.Join("A", "r1", "alice")
	c.Join("B", "r1", "bob")
	c.Join("C", "r2", "carol")
	rec.reset()

	before := c.Stats()
	req.Equal(Stats{ConnectedUsers: 3, ActiveRooms: 2}, before)

	req.Equal([]RoomSummary{{RoomID: "r1", UserCount: 2}, {RoomID: "r2", UserCount: 1}}, c.ListRooms())

	detail, ok := c.GetRoom("r1")
	req.True(ok)
	req.Equal(RoomDetail{RoomID: "r1", Users: []Member{
		{Username: "alice", ConnectionID: "A"},
		{Username: "bob", ConnectionID: "B"},
	}}, detail)

	// Mutating the returned snapshot leaves the room untouched
	detail.Users[0].Username = "eve"
	again, _ := c.GetRoom("r1")
	req.Equal("alice", again.Users[0].Username)

	_, ok = c.GetRoom("nope")
	req.False(ok)

	req.Equal(before, c.Stats())
	req.Zero(rec.total())
}
