package presence

import (
	"log/slog"
	"sync"
	"time"
)

// Coordinator is the single owner of the connection registry and room table.
// Every operation runs under one mutex and dispatches its outbound events
// before releasing it, so a room-state frame always reflects the mutation
// that triggered it. Delivery through the Sender only enqueues, no socket I/O
// happens while the lock is held.
type Coordinator struct {
	mu        sync.Mutex
	sessions  *Registry
	rooms     *RoomTable
	dispatch  *Dispatcher
	log       *slog.Logger
	now       func() time.Time
	lastMsgID int64
	startedAt time.Time
}

// NewCoordinator builds an empty coordinator delivering through sender.
func NewCoordinator(sender Sender, log *slog.Logger) *Coordinator {
	rooms := NewRoomTable()
	return &Coordinator{
		sessions:  NewRegistry(),
		rooms:     rooms,
		dispatch:  NewDispatcher(rooms, sender, log),
		log:       log,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Join moves connectionID into roomID under displayName. A connection already
// in a different room leaves it first. Re-joining the current room only
// refreshes the session and emits nothing. It returns true when the
// connection was newly added to the room.
func (c *Coordinator) Join(connectionID, roomID, displayName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sessions.Get(connectionID); ok && existing.InRoom() && existing.RoomID != roomID {
		c.leaveRoomLocked(existing)
	}

	c.sessions.Put(connectionID, Session{DisplayName: displayName, RoomID: roomID})

	room := c.rooms.Ensure(roomID)
	if !room.Add(Member{Username: displayName, ConnectionID: connectionID}) {
		c.log.Debug("Duplicate join ignored", "connection_id", connectionID, "room_id", roomID)
		return false
	}

	c.dispatch.ToRoomExcept(roomID, connectionID, UserJoined{
		Username:     displayName,
		ConnectionID: connectionID,
		TotalUsers:   room.Len(),
	})
	c.dispatch.ToRoom(roomID, RoomState{Users: room.Snapshot()})

	c.log.Info("User joined room",
		"connection_id", connectionID, "username", displayName,
		"room_id", roomID, "total_users", room.Len())
	return true
}

// SendMessage relays text to every member of roomID, sender included.
// It is dropped unless the sender is currently in roomID.
func (c *Coordinator) SendMessage(connectionID, roomID, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.authorizedLocked(connectionID, roomID)
	if !ok {
		return false
	}

	now := c.now()
	c.dispatch.ToRoom(roomID, NewMessage{
		ID:        c.nextMessageIDLocked(now),
		Username:  session.DisplayName,
		Message:   text,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	})
	return true
}

// SetTyping broadcasts the typing indicator of connectionID to the other
// members of roomID. It is dropped unless the sender is currently in roomID.
func (c *Coordinator) SetTyping(connectionID, roomID string, isTyping bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.authorizedLocked(connectionID, roomID)
	if !ok {
		return false
	}

	c.dispatch.ToRoomExcept(roomID, connectionID, UserTyping{
		Username: session.DisplayName,
		IsTyping: isTyping,
	})
	return true
}

// Leave removes connectionID from its current room. The session is kept with
// an empty room until Disconnect. It returns false when there was nothing to
// leave.
func (c *Coordinator) Leave(connectionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions.Get(connectionID)
	if !ok || !session.InRoom() {
		return false
	}

	c.leaveRoomLocked(session)
	session.RoomID = ""
	c.sessions.Put(connectionID, session)
	return true
}

// Disconnect performs the leave cleanup and forgets the session entirely.
// It is safe to call for connections that never joined.
func (c *Coordinator) Disconnect(connectionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions.Get(connectionID)
	if !ok {
		return false
	}

	if session.InRoom() {
		c.leaveRoomLocked(session)
	}
	c.sessions.Remove(connectionID)
	c.log.Info("Session removed", "connection_id", connectionID, "username", session.DisplayName)
	return true
}

// Notify delivers ev to connectionID alone. Room state is not consulted, so
// it is usable before a session exists.
func (c *Coordinator) Notify(connectionID string, ev Event) bool {
	return c.dispatch.ToConnection(connectionID, ev)
}

// leaveRoomLocked removes the session's connection from its room, destroys
// the room when it empties and otherwise notifies the survivors.
func (c *Coordinator) leaveRoomLocked(session Session) {
	room, ok := c.rooms.Get(session.RoomID)
	if !ok {
		return
	}
	if _, removed := room.Remove(session.ConnectionID); !removed {
		return
	}

	if c.rooms.RemoveIfEmpty(session.RoomID) {
		c.log.Info("Room closed", "room_id", session.RoomID)
		return
	}

	c.dispatch.ToRoom(session.RoomID, UserLeft{
		Username:   session.DisplayName,
		TotalUsers: room.Len(),
	})
	c.dispatch.ToRoom(session.RoomID, RoomState{Users: room.Snapshot()})

	c.log.Info("User left room",
		"connection_id", session.ConnectionID, "username", session.DisplayName,
		"room_id", session.RoomID, "total_users", room.Len())
}

func (c *Coordinator) authorizedLocked(connectionID, roomID string) (Session, bool) {
	session, ok := c.sessions.Get(connectionID)
	if !ok || !session.InRoom() || session.RoomID != roomID {
		c.log.Debug("Dropped event for room the connection is not in",
			"connection_id", connectionID, "room_id", roomID)
		return Session{}, false
	}
	return session, true
}

// nextMessageIDLocked derives ids from wall-clock milliseconds while keeping
// them strictly increasing.
func (c *Coordinator) nextMessageIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= c.lastMsgID {
		id = c.lastMsgID + 1
	}
	c.lastMsgID = id
	return id
}
