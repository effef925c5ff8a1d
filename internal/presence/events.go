package presence

// Outbound event names as they appear in the wire envelope.
const (
	EventRoomState  = "room-state"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventNewMessage = "new-message"
	EventUserTyping = "user-typing"
)

// Event is an outbound payload addressed to one or more connections.
type Event interface {
	EventName() string
}

// Envelope is the JSON frame written to clients for every event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// RoomState is the full membership snapshot of a room.
type RoomState struct {
	Users []Member `json:"users"`
}

func (RoomState) EventName() string { return EventRoomState }

// UserJoined announces a new member to the rest of the room.
type UserJoined struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
	TotalUsers   int    `json:"totalUsers"`
}

func (UserJoined) EventName() string { return EventUserJoined }

// UserLeft announces a departure to the remaining members.
type UserLeft struct {
	Username   string `json:"username"`
	TotalUsers int    `json:"totalUsers"`
}

func (UserLeft) EventName() string { return EventUserLeft }

// NewMessage is a chat message relayed to the whole room, sender included.
type NewMessage struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (NewMessage) EventName() string { return EventNewMessage }

// UserTyping toggles the typing indicator of a member for everyone else.
type UserTyping struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func (UserTyping) EventName() string { return EventUserTyping }
