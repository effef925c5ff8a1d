package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/roomstore"
)

const testOrigin = "http://localhost:8080"

type wireFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

// newTestServer starts a relay behind httptest and tears both down with t.
func newTestServer(t *testing.T, cfg Config, store roomstore.Store) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(cfg, store, testLogger())
	srv.Start()

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(2 * time.Second)
	})
	return srv, ts
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

// dial connects and consumes the connected frame, returning the connection id.
func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", testOrigin)

	conn, resp, err := dialer.Dial(wsURL(ts.URL), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	f := readFrame(t, conn)
	require.Equal(t, "connected", f.Type)
	connected := decode[ConnectedEvent](t, f)
	require.NotEmpty(t, connected.ConnectionID)
	return conn, connected.ConnectionID
}

func emit(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(InboundMessage{Type: eventType, Payload: body}))
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f wireFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// expectNoFrame fails if anything arrives on conn within wait.
func expectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}

func decode[T any](t *testing.T, f wireFrame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}
