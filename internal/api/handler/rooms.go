package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partygames/internal/api/response"
	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/realtime"
	"github.com/mcoot/partygames/internal/services/dispatcher"
)

// RoomHandler serves the read-only room endpoints
type RoomHandler struct {
	rooms      *dispatcher.Manager
	spectators *realtime.Spectators
	clock      clock.Clock
	logger     *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *dispatcher.Manager, spectators *realtime.Spectators, clk clock.Clock, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:      rooms,
		spectators: spectators,
		clock:      clk,
		logger:     logger,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RoomList{Rooms: h.rooms.List()})
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.rooms.Snapshot(r.Context(), model.RoomID(mux.Vars(r)["id"]), "")
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, model.RoomPayload{Room: state})
}

// Events handles GET /api/v1/rooms/{id}/events (SSE spectator stream)
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])

	// Subscribe first; a room closing before the snapshot then releases the hub
	sub, ok := h.spectators.Subscribe(roomID)
	if !ok {
		WriteError(w, model.ErrRoomNotFound)
		return
	}
	defer sub.Close()

	state, err := h.rooms.Snapshot(r.Context(), roomID, "")
	if err != nil {
		WriteError(w, err)
		return
	}

	initial, err := json.Marshal(model.Envelope{
		Type:      model.EventState,
		RoomID:    roomID,
		Timestamp: h.clock.Now(),
		Payload:   model.RoomPayload{Room: state},
	})
	if err != nil {
		h.logger.Error("failed to encode spectator snapshot", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	sub.Serve(w, r, initial)
}
