package presence

import (
	"encoding/json"
	"log/slog"
)

// Sender delivers an encoded frame to a single connection. Implementations
// must not block: a connection that cannot accept the frame is dropped on the
// transport side and eventually reported back through Coordinator.Disconnect.
type Sender interface {
	Send(connectionID string, payload []byte) bool
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(connectionID string, payload []byte) bool

// Send calls f.
func (f SenderFunc) Send(connectionID string, payload []byte) bool {
	return f(connectionID, payload)
}

// Dispatcher resolves recipients from the room table at call time and
// fans an event out through the Sender.
type Dispatcher struct {
	rooms  *RoomTable
	sender Sender
	log    *slog.Logger
}

// NewDispatcher binds a dispatcher to the room table it reads membership from.
func NewDispatcher(rooms *RoomTable, sender Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{rooms: rooms, sender: sender, log: log}
}

// ToRoom delivers ev to every current member of roomID.
func (d *Dispatcher) ToRoom(roomID string, ev Event) int {
	return d.ToRoomExcept(roomID, "", ev)
}

// ToRoomExcept delivers ev to every current member of roomID other than
// excludedConnectionID. It returns the number of accepted deliveries.
func (d *Dispatcher) ToRoomExcept(roomID, excludedConnectionID string, ev Event) int {
	room, ok := d.rooms.Get(roomID)
	if !ok {
		return 0
	}
	payload, ok := d.encode(ev)
	if !ok {
		return 0
	}

	delivered := 0
	for _, id := range room.ConnectionIDs() {
		if id == excludedConnectionID {
			continue
		}
		if d.sender.Send(id, payload) {
			delivered++
		}
	}
	d.log.Debug("Dispatched event",
		"event", ev.EventName(), "room_id", roomID, "delivered", delivered)
	return delivered
}

// ToConnection delivers ev to a single connection.
func (d *Dispatcher) ToConnection(connectionID string, ev Event) bool {
	payload, ok := d.encode(ev)
	if !ok {
		return false
	}
	return d.sender.Send(connectionID, payload)
}

func (d *Dispatcher) encode(ev Event) ([]byte, bool) {
	payload, err := Encode(ev)
	if err != nil {
		d.log.Error("Failed to encode event", "event", ev.EventName(), "err", err)
		return nil, false
	}
	return payload, true
}

// Encode wraps ev in its wire envelope.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(Envelope{Type: ev.EventName(), Payload: ev})
}
