// Package server defines the inbound frame types, transport-only outbound
// events and utility helpers shared by clients and the hub.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names accepted over the WebSocket.
const (
	InboundJoinRoom    = "join-room"
	InboundSendMessage = "send-message"
	InboundTyping      = "typing"
	InboundLeaveRoom   = "leave-room"
)

// InboundMessage is the JSON envelope every client frame must use.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is the body of a join-room event.
type JoinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required,max=128"`
	Username string `json:"username" validate:"required,max=64"`
}

// SendMessagePayload is the body of a send-message event.
type SendMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required,max=128"`
	Message string `json:"message"`
}

// TypingPayload is the body of a typing event.
type TypingPayload struct {
	RoomID   string `json:"roomId" validate:"required,max=128"`
	IsTyping bool   `json:"isTyping"`
}

// ConnectedEvent is sent once after the upgrade so clients learn their id.
type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
}

func (ConnectedEvent) EventName() string { return "connected" }

// ErrorEvent reports a malformed or invalid frame back to its sender.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string { return "error" }

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
