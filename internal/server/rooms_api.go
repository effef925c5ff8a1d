package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Tyrowin/roomrelay/internal/roomstore"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type roomResponse struct {
	Message string          `json:"message,omitempty"`
	Room    *roomstore.Room `json:"room,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type roomListResponse struct {
	Rooms      []roomstore.Room `json:"rooms"`
	Pagination pagination       `json:"pagination"`
}

// CreateRoomHandler persists a new room and derives its slug from the name.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var in roomstore.CreateRoom
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.internalError(w, "Error creating room", err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse{Message: "Room created successfully", Room: &room})
}

// ListRoomsHandler returns one page of persisted rooms, newest first.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	q := roomstore.ListQuery{
		Page:   positiveInt(r.URL.Query().Get("page"), defaultPage),
		Limit:  min(positiveInt(r.URL.Query().Get("limit"), defaultLimit), roomstore.MaxLimit),
		Search: r.URL.Query().Get("search"),
	}

	page, err := s.store.List(r.Context(), q)
	if err != nil {
		s.internalError(w, "Error fetching rooms", err)
		return
	}

	rooms := page.Rooms
	if rooms == nil {
		rooms = []roomstore.Room{}
	}
	writeJSON(w, http.StatusOK, roomListResponse{
		Rooms: rooms,
		Pagination: pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: page.Total,
			Pages: (page.Total + q.Limit - 1) / q.Limit,
		},
	})
}

// GetRoomHandler returns one persisted room by id.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.Get(r.Context(), r.PathValue("id"))
	s.writeRoom(w, room, err, "Error fetching room")
}

// GetRoomBySlugHandler returns one persisted room by slug.
func (s *Server) GetRoomBySlugHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetBySlug(r.Context(), r.PathValue("slug"))
	s.writeRoom(w, room, err, "Error fetching room by slug")
}

func (s *Server) writeRoom(w http.ResponseWriter, room roomstore.Room, err error, logMsg string) {
	switch {
	case errors.Is(err, roomstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case err != nil:
		s.internalError(w, logMsg, err)
	default:
		writeJSON(w, http.StatusOK, roomResponse{Room: &room})
	}
}

// UpdateRoomHandler applies a partial update. A slug owned by another room
// is rejected with 409.
func (s *Server) UpdateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var in roomstore.UpdateRoom
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := s.store.Update(r.Context(), r.PathValue("id"), in)
	switch {
	case errors.Is(err, roomstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, roomstore.ErrSlugTaken):
		writeError(w, http.StatusConflict, roomstore.ErrSlugTaken.Error())
	case err != nil:
		s.internalError(w, "Error updating room", err)
	default:
		writeJSON(w, http.StatusOK, roomResponse{Message: "Room updated successfully", Room: &room})
	}
}

// DeleteRoomHandler removes a persisted room.
func (s *Server) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, roomstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case err != nil:
		s.internalError(w, "Error deleting room", err)
	default:
		writeJSON(w, http.StatusOK, roomResponse{Message: "Room deleted successfully"})
	}
}

func (s *Server) internalError(w http.ResponseWriter, logMsg string, err error) {
	s.log.Error(logMsg, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
