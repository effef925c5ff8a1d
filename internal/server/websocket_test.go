package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

func TestWebSocket_RoomScenario(t *testing.T) {
	req := require.New(t)
	srv, ts := newTestServer(t, NewConfig(), nil)

	alice, aliceID := dial(t, ts)
	bob, bobID := dial(t, ts)

	// Given alice alone in r1
	emit(t, alice, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "alice"})
	f := readFrame(t, alice)
	req.Equal(presence.EventRoomState, f.Type)
	req.Equal([]presence.Member{{Username: "alice", ConnectionID: aliceID}}, decode[presence.RoomState](t, f).Users)

	// When bob joins
	emit(t, bob, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "bob"})

	// Then alice hears about bob before the new roster
	f = readFrame(t, alice)
	req.Equal(presence.EventUserJoined, f.Type)
	req.Equal(presence.UserJoined{Username: "bob", ConnectionID: bobID, TotalUsers: 2}, decode[presence.UserJoined](t, f))
	f = readFrame(t, alice)
	req.Equal(presence.EventRoomState, f.Type)
	req.Len(decode[presence.RoomState](t, f).Users, 2)

	// And bob only receives the roster
	f = readFrame(t, bob)
	req.Equal(presence.EventRoomState, f.Type)
	req.Equal([]presence.Member{
		{Username: "alice", ConnectionID: aliceID},
		{Username: "bob", ConnectionID: bobID},
	}, decode[presence.RoomState](t, f).Users)

	// When bob types then speaks
	emit(t, bob, InboundTyping, TypingPayload{RoomID: "r1", IsTyping: true})
	emit(t, bob, InboundSendMessage, SendMessagePayload{RoomID: "r1", Message: "hi"})

	// Then alice sees the typing indicator and both see the message
	f = readFrame(t, alice)
	req.Equal(presence.EventUserTyping, f.Type)
	req.Equal(presence.UserTyping{Username: "bob", IsTyping: true}, decode[presence.UserTyping](t, f))
	for _, conn := range []*websocket.Conn{alice, bob} {
		f = readFrame(t, conn)
		req.Equal(presence.EventNewMessage, f.Type)
		msg := decode[presence.NewMessage](t, f)
		req.Equal("bob", msg.Username)
		req.Equal("hi", msg.Message)
		req.Positive(msg.ID)
		_, err := time.Parse(time.RFC3339Nano, msg.Timestamp)
		req.NoError(err)
	}

	// When bob leaves
	emit(t, bob, InboundLeaveRoom, struct{}{})

	// Then alice gets user-left followed by the shrunken roster
	f = readFrame(t, alice)
	req.Equal(presence.EventUserLeft, f.Type)
	req.Equal(presence.UserLeft{Username: "bob", TotalUsers: 1}, decode[presence.UserLeft](t, f))
	f = readFrame(t, alice)
	req.Equal(presence.EventRoomState, f.Type)
	req.Len(decode[presence.RoomState](t, f).Users, 1)

	// And bob keeps a session outside any room
	session, ok := srv.Coordinator().Session(bobID)
	req.True(ok)
	req.False(session.InRoom())
}

func TestWebSocket_DisconnectNotifiesRoom(t *testing.T) {
	req := require.New(t)
	srv, ts := newTestServer(t, NewConfig(), nil)

	alice, _ := dial(t, ts)
	bob, bobID := dial(t, ts)

	emit(t, alice, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "alice"})
	readFrame(t, alice)
	emit(t, bob, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "bob"})
	readFrame(t, alice)
	readFrame(t, alice)

	// When bob's socket goes away
	req.NoError(bob.Close())

	// Then alice is told and the session is gone
	f := readFrame(t, alice)
	req.Equal(presence.EventUserLeft, f.Type)
	req.Equal(presence.UserLeft{Username: "bob", TotalUsers: 1}, decode[presence.UserLeft](t, f))
	req.Eventually(func() bool {
		_, ok := srv.Coordinator().Session(bobID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_InvalidFramesGetErrorEvent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		contains string
	}{
		{name: "not json", raw: "hello", contains: "invalid frame"},
		{name: "unknown type", raw: `{"type":"dance","payload":{}}`, contains: "unknown event type"},
		{name: "missing username", raw: `{"type":"join-room","payload":{"roomId":"r1"}}`, contains: "username"},
		{name: "missing payload", raw: `{"type":"typing"}`, contains: "roomId"},
	}

	_, ts := newTestServer(t, NewConfig(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			conn, _ := dial(t, ts)

			req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))

			f := readFrame(t, conn)
			req.Equal("error", f.Type)
			req.Contains(decode[ErrorEvent](t, f).Message, tt.contains)
		})
	}
}

func TestWebSocket_UnauthorisedEventsAreSilent(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t, NewConfig(), nil)

	alice, _ := dial(t, ts)
	mallory, _ := dial(t, ts)

	emit(t, alice, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "alice"})
	req.Equal(presence.EventRoomState, readFrame(t, alice).Type)

	// When a connection outside r1 talks into it
	emit(t, mallory, InboundSendMessage, SendMessagePayload{RoomID: "r1", Message: "boo"})
	emit(t, mallory, InboundTyping, TypingPayload{RoomID: "r1", IsTyping: true})

	// Then nobody hears anything
	expectNoFrame(t, alice, 200*time.Millisecond)
	expectNoFrame(t, mallory, 200*time.Millisecond)
}

func TestWebSocket_RateLimitDiscardsExcessFrames(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()
	cfg.RateLimit = RateLimitConfig{Burst: 2, RefillInterval: time.Hour}
	_, ts := newTestServer(t, cfg, nil)

	conn, _ := dial(t, ts)

	// Given a budget of two frames, the third is dropped
	emit(t, conn, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "alice"})
	emit(t, conn, InboundSendMessage, SendMessagePayload{RoomID: "r1", Message: "one"})
	emit(t, conn, InboundSendMessage, SendMessagePayload{RoomID: "r1", Message: "two"})

	req.Equal(presence.EventRoomState, readFrame(t, conn).Type)
	f := readFrame(t, conn)
	req.Equal(presence.EventNewMessage, f.Type)
	req.Equal("one", decode[presence.NewMessage](t, f).Message)
	expectNoFrame(t, conn, 200*time.Millisecond)
}

func TestWebSocket_OversizedFrameClosesConnection(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()
	cfg.MaxMessageSize = 64
	_, ts := newTestServer(t, cfg, nil)

	conn, _ := dial(t, ts)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 256))))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
}

func TestWebSocket_RejectsDisallowedOrigin(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	_, ts := newTestServer(t, cfg, nil)

	headers := http.Header{}
	headers.Set("Origin", "https://evil.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), headers)
	if conn != nil {
		_ = conn.Close()
	}
	req.Error(err)
	req.NotNil(resp)
	_ = resp.Body.Close()
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_ShutdownClosesClients(t *testing.T) {
	req := require.New(t)
	srv, ts := newTestServer(t, NewConfig(), nil)

	conn, _ := dial(t, ts)
	emit(t, conn, InboundJoinRoom, JoinRoomPayload{RoomID: "r1", Username: "alice"})
	readFrame(t, conn)

	req.NoError(srv.Shutdown(2 * time.Second))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.Equal(presence.Stats{}, srv.Coordinator().Stats())
}
