package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// inboundHandler applies one decoded event kind to the coordinator. The
// boolean reports whether the coordinator acted on it; unauthorised events
// return false without an error.
type inboundHandler func(coord *presence.Coordinator, connectionID string, payload json.RawMessage) (bool, error)

var inboundHandlers = map[string]inboundHandler{
	InboundJoinRoom:    handleJoinRoom,
	InboundSendMessage: handleSendMessage,
	InboundTyping:      handleTyping,
	InboundLeaveRoom:   handleLeaveRoom,
}

var errUnknownEvent = errors.New("unknown event type")

func handleJoinRoom(coord *presence.Coordinator, connectionID string, payload json.RawMessage) (bool, error) {
	var p JoinRoomPayload
	if err := decodePayload(payload, &p); err != nil {
		return false, err
	}
	return coord.Join(connectionID, p.RoomID, p.Username), nil
}

func handleSendMessage(coord *presence.Coordinator, connectionID string, payload json.RawMessage) (bool, error) {
	var p SendMessagePayload
	if err := decodePayload(payload, &p); err != nil {
		return false, err
	}
	return coord.SendMessage(connectionID, p.RoomID, p.Message), nil
}

func handleTyping(coord *presence.Coordinator, connectionID string, payload json.RawMessage) (bool, error) {
	var p TypingPayload
	if err := decodePayload(payload, &p); err != nil {
		return false, err
	}
	return coord.SetTyping(connectionID, p.RoomID, p.IsTyping), nil
}

func handleLeaveRoom(coord *presence.Coordinator, connectionID string, _ json.RawMessage) (bool, error) {
	return coord.Leave(connectionID), nil
}

// decodePayload unmarshals and validates an event body. A missing body is
// treated as an empty object so required fields are reported.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(fields, ", "))
}

// dispatchInbound decodes a raw frame and routes it to its handler.
func dispatchInbound(coord *presence.Coordinator, connectionID string, raw []byte) (string, bool, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false, fmt.Errorf("invalid frame: %w", err)
	}
	handler, ok := inboundHandlers[msg.Type]
	if !ok {
		return msg.Type, false, fmt.Errorf("%w: %q", errUnknownEvent, msg.Type)
	}
	applied, err := handler(coord, connectionID, msg.Payload)
	return msg.Type, applied, err
}
