package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/dutchscore/internal/api/apierr"
	"github.com/mcoot/dutchscore/internal/api/response"
	"github.com/mcoot/dutchscore/internal/model"
)

var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,12}$`)

// RoomSource is the read side of the relay
type RoomSource interface {
	Room(code model.RoomCode) (model.Room, error)
	RoomCount() int
	HubCount() int
	ClientCount() int
}

// RoomHandler serves read-only views of relay rooms
type RoomHandler struct {
	rooms RoomSource
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomSource) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if !roomCodePattern.MatchString(code) {
		WriteError(w, apierr.NewInvalidRequestError("Room code must be 4-12 letters or digits"))
		return
	}

	room, err := h.rooms.Room(model.RoomCode(code))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Health handles GET /api/v1/health
func (h *RoomHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:  "ok",
		Rooms:   h.rooms.RoomCount(),
		Hubs:    h.rooms.HubCount(),
		Clients: h.rooms.ClientCount(),
	})
}
