package presence

import "github.com/samber/lo"

// Member is one connection inside a room, as listed to clients.
type Member struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// Room holds the ordered membership of a live room. Members are kept in join
// order; removal never reorders the survivors.
type Room struct {
	ID      string
	members []Member
}

func newRoom(id string) *Room {
	return &Room{ID: id}
}

// Add appends a member unless the connection is already present.
// It returns false for a duplicate join.
func (r *Room) Add(m Member) bool {
	if r.Has(m.ConnectionID) {
		return false
	}
	r.members = append(r.members, m)
	return true
}

// Remove drops the member with the given connection id and returns it.
func (r *Room) Remove(connectionID string) (Member, bool) {
	_, idx, found := lo.FindIndexOf(r.members, func(m Member) bool {
		return m.ConnectionID == connectionID
	})
	if !found {
		return Member{}, false
	}
	removed := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	return removed, true
}

// Has reports whether connectionID is a member.
func (r *Room) Has(connectionID string) bool {
	return lo.ContainsBy(r.members, func(m Member) bool {
		return m.ConnectionID == connectionID
	})
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.members)
}

// Snapshot copies the member list so callers never alias the live slice.
func (r *Room) Snapshot() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// ConnectionIDs returns the member connection ids in join order.
func (r *Room) ConnectionIDs() []string {
	return lo.Map(r.members, func(m Member, _ int) string {
		return m.ConnectionID
	})
}

// RoomSummary is the listing view of a live room.
type RoomSummary struct {
	RoomID    string `json:"roomId"`
	UserCount int    `json:"userCount"`
}

// RoomTable maps room ids to live rooms. Rooms exist only while they have
// members. Listing follows room creation order.
// It is not safe for concurrent use; the Coordinator serialises access.
type RoomTable struct {
	rooms map[string]*Room
	order []string
}

// NewRoomTable returns an empty table.
func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]*Room)}
}

// Ensure returns the room for roomID, creating an empty one if needed.
func (t *RoomTable) Ensure(roomID string) *Room {
	if room, ok := t.rooms[roomID]; ok {
		return room
	}
	room := newRoom(roomID)
	t.rooms[roomID] = room
	t.order = append(t.order, roomID)
	return room
}

// Get returns the live room for roomID.
func (t *RoomTable) Get(roomID string) (*Room, bool) {
	room, ok := t.rooms[roomID]
	return room, ok
}

// RemoveIfEmpty deletes the room entry when it has no members left and
// reports whether it did.
func (t *RoomTable) RemoveIfEmpty(roomID string) bool {
	room, ok := t.rooms[roomID]
	if !ok || room.Len() > 0 {
		return false
	}
	delete(t.rooms, roomID)
	t.order = lo.Without(t.order, roomID)
	return true
}

// List returns every live room with its member count.
func (t *RoomTable) List() []RoomSummary {
	return lo.Map(t.order, func(id string, _ int) RoomSummary {
		return RoomSummary{RoomID: id, UserCount: t.rooms[id].Len()}
	})
}

// Len returns the number of live rooms.
func (t *RoomTable) Len() int {
	return len(t.rooms)
}
