// Package server wires HTTP handlers into a ServeMux via routing helpers.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes registers every route on a new ServeMux.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.InfoHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("GET /test", TestPageHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.HandleFunc("GET /api/health", s.HealthHandler)
	mux.HandleFunc("GET /rooms", s.ListLiveRoomsHandler)
	mux.HandleFunc("GET /api/socket/rooms", s.ListLiveRoomsHandler)
	mux.HandleFunc("GET /rooms/{roomId}", s.GetLiveRoomHandler)
	mux.HandleFunc("GET /api/socket/rooms/{roomId}", s.GetLiveRoomHandler)

	mux.HandleFunc("POST /api/rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /api/rooms", s.ListRoomsHandler)
	mux.HandleFunc("GET /api/rooms/{id}", s.GetRoomHandler)
	mux.HandleFunc("GET /api/rooms/slug/{slug}", s.GetRoomBySlugHandler)
	mux.HandleFunc("PUT /api/rooms/{id}", s.UpdateRoomHandler)
	mux.HandleFunc("DELETE /api/rooms/{id}", s.DeleteRoomHandler)
	return mux
}

// Routes returns the mux wrapped in the CORS middleware.
func (s *Server) Routes() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.SetupRoutes())
}
