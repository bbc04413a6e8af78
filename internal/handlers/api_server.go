// internal/handlers/api_server.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/broadcast"
	"github.com/openarena/muster/internal/coordinator"
	"github.com/openarena/muster/internal/match"
	"github.com/openarena/muster/internal/room"
)

// RoomServer bundles the room engine: the store, the coordinator that guards
// it, and the hub the coordinator publishes through. Handlers talk to the
// coordinator only; nothing above it mutates room state.
type RoomServer struct {
	Coordinator *coordinator.Coordinator
	Hub         *broadcast.Hub
	Logger      *logrus.Logger
}

// NewRoomServer wires the engine with the postgres-backed match service and
// room archive.
func NewRoomServer(logger *logrus.Logger) *RoomServer {
	if logger == nil {
		logger = logrus.New()
	}
	hub := broadcast.NewHub(logger)
	coord := coordinator.New(room.NewStore(logger), hub, match.New(logger), logger)
	return &RoomServer{
		Coordinator: coord,
		Hub:         hub,
		Logger:      logger,
	}
}

// writeRoomError maps the room error taxonomy onto HTTP statuses. All of
// these are recoverable rejections; the room is unchanged.
func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, room.ErrNotInRoom):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, room.ErrNotHost):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrAlreadyInRoom),
		errors.Is(err, room.ErrRoomClosed),
		errors.Is(err, room.ErrRoomAlreadyStarted),
		errors.Is(err, room.ErrInvalidTransition),
		errors.Is(err, room.ErrInvalidModeTransition),
		errors.Is(err, room.ErrCannotKickHost):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
