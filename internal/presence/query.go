package presence

import "time"

// RoomDetail is the membership view returned for a single live room.
type RoomDetail struct {
	RoomID string   `json:"roomId"`
	Users  []Member `json:"users"`
}

// Stats aggregates the counters exposed by health and metrics.
type Stats struct {
	ConnectedUsers int `json:"connectedUsers"`
	ActiveRooms    int `json:"activeRooms"`
}

// ListRooms returns every live room with its member count, in creation order.
func (c *Coordinator) ListRooms() []RoomSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms.List()
}

// GetRoom returns the members of roomID in join order.
func (c *Coordinator) GetRoom(roomID string) (RoomDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms.Get(roomID)
	if !ok {
		return RoomDetail{}, false
	}
	return RoomDetail{RoomID: roomID, Users: room.Snapshot()}, true
}

// Session returns a copy of the session tracked for connectionID.
func (c *Coordinator) Session(connectionID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Get(connectionID)
}

// Stats returns the number of tracked sessions and live rooms.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ConnectedUsers: c.sessions.Len(),
		ActiveRooms:    c.rooms.Len(),
	}
}

// Uptime reports how long the coordinator has been running.
func (c *Coordinator) Uptime() time.Duration {
	return time.Since(c.startedAt)
}
