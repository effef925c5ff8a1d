package presence

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// recorder is a Sender that keeps every frame per connection.
type recorder struct {
	frames  map[string][]frame
	refused map[string]bool
}

func newRecorder() *recorder {
	return &recorder{frames: map[string][]frame{}, refused: map[string]bool{}}
}

func (r *recorder) Send(connectionID string, payload []byte) bool {
	if r.refused[connectionID] {
		return false
	}
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		panic(err)
	}
	r.frames[connectionID] = append(r.frames[connectionID], f)
	return true
}

func (r *recorder) types(connectionID string) []string {
	out := make([]string, 0, len(r.frames[connectionID]))
	for _, f := range r.frames[connectionID] {
		out = append(out, f.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.frames = map[string][]frame{}
}

func (r *recorder) total() int {
	n := 0
	for _, fs := range r.frames {
		n += len(fs)
	}
	return n
}

func payloadOf[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}

func newTestCoordinator() (*Coordinator, *recorder) {
	rec := newRecorder()
	c := NewCoordinator(rec, logs.GetLoggerFromLevel(slog.LevelDebug))
	c.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c, rec
}

func usernames(members []Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Username)
	}
	return out
}
