// Package server constructs and starts the relay HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/process"

	"github.com/Tyrowin/roomrelay/internal/presence"
	"github.com/Tyrowin/roomrelay/internal/roomstore"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// Server bundles the hub, the room coordinator and the persisted-room store
// behind one HTTP handler.
type Server struct {
	cfg      Config
	log      *slog.Logger
	hub      *Hub
	coord    *presence.Coordinator
	store    roomstore.Store
	metrics  *Metrics
	origins  originPolicy
	upgrader websocket.Upgrader
	proc     *process.Process
}

// New wires a server. The hub is not running until Start is called.
func New(cfg Config, store roomstore.Store, log *slog.Logger) *Server {
	cfg = cfg.sanitize()
	s := &Server{
		cfg:   cfg,
		log:   log,
		store: store,
	}

	s.metrics = NewMetrics(func() presence.Stats { return s.coord.Stats() })
	s.hub = NewHub(s.metrics, log)
	s.coord = presence.NewCoordinator(s.hub, log)
	s.hub.attach(s.coord)

	s.origins = newOriginPolicy(cfg.AllowedOrigins, log)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	}
	s.proc = proc
	return s
}

// Coordinator exposes the room coordinator.
func (s *Server) Coordinator() *presence.Coordinator {
	return s.coord
}

// Hub exposes the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start launches the hub event loop.
func (s *Server) Start() {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")
}

// Shutdown stops the hub and closes every client.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns an error if the server fails to start.
func StartServer(server *http.Server, log *slog.Logger) error {
	log.Info("Server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}

	log.Info("HTTP server shutdown completed")
	return nil
}
