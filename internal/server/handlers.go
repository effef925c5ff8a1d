// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, live room queries and the built-in test page.
package server

import (
	"encoding/json"
	"net/http"
	"os"
)

// WebSocketHandler upgrades GET requests and registers the resulting client
// with the hub, which launches its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.Register(client) {
		_ = conn.Close()
	}
}

type processStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
}

type healthResponse struct {
	Status         string       `json:"status"`
	ConnectedUsers int          `json:"connectedUsers"`
	ActiveRooms    int          `json:"activeRooms"`
	Environment    string       `json:"environment"`
	Platform       string       `json:"platform"`
	UptimeSeconds  int64        `json:"uptimeSeconds"`
	Process        processStats `json:"process"`
}

// HealthHandler reports live counters and process resource usage.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	stats := s.coord.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ConnectedUsers: stats.ConnectedUsers,
		ActiveRooms:    stats.ActiveRooms,
		Environment:    s.cfg.Env,
		Platform:       detectPlatform(s.cfg.Env, os.Getenv),
		UptimeSeconds:  int64(s.coord.Uptime().Seconds()),
		Process:        s.processStats(),
	})
}

func (s *Server) processStats() processStats {
	var ps processStats
	if s.proc == nil {
		return ps
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		ps.RSSBytes = mem.RSS
	} else {
		s.log.Debug("Failed to read memory info", "error", err)
	}
	if cpu, err := s.proc.CPUPercent(); err == nil {
		ps.CPUPercent = cpu
	} else {
		s.log.Debug("Failed to read cpu usage", "error", err)
	}
	return ps
}

// detectPlatform names the hosting platform from well-known variables.
func detectPlatform(env string, getenv func(string) string) string {
	if env != "production" {
		return "development"
	}
	switch {
	case getenv("GAE_ENV") != "":
		return "google-app-engine"
	case getenv("K_SERVICE") != "":
		return "google-cloud-run"
	default:
		return "production"
	}
}

// InfoHandler describes the service and its main endpoints.
func (s *Server) InfoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Room relay server is running!",
		"version":     Version,
		"environment": s.cfg.Env,
		"endpoints": map[string]string{
			"health":      "/api/health",
			"rooms":       "/api/rooms",
			"socketRooms": "/api/socket/rooms",
			"websocket":   "/ws",
			"metrics":     "/metrics",
		},
	})
}

// ListLiveRoomsHandler lists rooms with connected members.
func (s *Server) ListLiveRoomsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.ListRooms())
}

// GetLiveRoomHandler returns the current members of one live room.
func (s *Server) GetLiveRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := s.coord.GetRoom(r.PathValue("roomId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// TestPageHandler serves a small browser client for manual testing.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(testPage))
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Room Relay WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
        }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Room Relay WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="roomInput" placeholder="Room id" value="lobby">
        <input type="text" id="nameInput" placeholder="Username">
        <button onclick="joinRoom()">Join</button>
        <button onclick="leaveRoom()">Leave</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        let typingTimer = null;
        const eventsDiv = document.getElementById('events');
        const statusDiv = document.getElementById('status');
        const connectButton = document.getElementById('connectButton');
        const roomInput = document.getElementById('roomInput');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');

        function log(text) {
            const line = document.createElement('div');
            line.textContent = text;
            eventsDiv.appendChild(line);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function emit(type, payload) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ type: type, payload: payload }));
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() { updateStatus(true); log('connected'); };
            ws.onmessage = function(event) {
                const frame = JSON.parse(event.data);
                log(frame.type + ' ' + JSON.stringify(frame.payload));
            };
            ws.onclose = function() { updateStatus(false); log('closed'); ws = null; };
            ws.onerror = function() { log('connection error'); };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function joinRoom() {
            emit('join-room', { roomId: roomInput.value.trim(), username: nameInput.value.trim() });
        }

        function leaveRoom() {
            emit('leave-room', {});
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (!message) {
                return;
            }
            emit('send-message', { roomId: roomInput.value.trim(), message: message });
            emit('typing', { roomId: roomInput.value.trim(), isTyping: false });
            messageInput.value = '';
        }

        messageInput.addEventListener('input', function() {
            emit('typing', { roomId: roomInput.value.trim(), isTyping: true });
            clearTimeout(typingTimer);
            typingTimer = setTimeout(function() {
                emit('typing', { roomId: roomInput.value.trim(), isTyping: false });
            }, 1500);
        });

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
