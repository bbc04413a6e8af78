// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openarena/muster/internal/coordinator"
	"github.com/openarena/muster/internal/room"
)

type createRoomRequest struct {
	Mode           room.Mode `json:"mode"`
	Map            string    `json:"map"`
	Region         string    `json:"region"`
	MaxSlots       int       `json:"maxSlots"`
	AutoCloseTimer int       `json:"autoCloseTimer"` // seconds; 0 = default
}

// CreateRoomHandler opens a new room with the caller as host. The host lands
// on slot 1 and the response carries the initial snapshot, including the
// shareable room code.
func CreateRoomHandler(gs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}
		if req.Mode != "" && !req.Mode.Valid() {
			http.Error(w, "invalid mode", http.StatusBadRequest)
			return
		}

		settings := room.Settings{
			Mode:     req.Mode,
			Map:      req.Map,
			Region:   req.Region,
			MaxSlots: req.MaxSlots,
		}
		snap, err := gs.Coordinator.CreateRoom(r.Context(), userID, settings, req.AutoCloseTimer)
		if err != nil {
			writeRoomError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

// ListRoomsHandler returns snapshots of all live rooms.
func ListRoomsHandler(gs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireUser(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gs.Coordinator.Rooms())
	}
}

// RoomByCodeHandler resolves a shareable room code. Route: /room/code/{code}.
func RoomByCodeHandler(gs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireUser(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/room/code/"))
		snap, err := gs.Coordinator.RoomByCode(code)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

// RoomHandler serves /room/{id} and /room/{id}/{action}. Control operations
// are request/response round trips; clients never mutate their local view
// optimistically, they wait for this response and refetch on broadcasts.
func RoomHandler(gs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/"), "/"), "/", 2)
		roomID, err := uuid.Parse(parts[0])
		if err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			getRoom(gs, w, roomID)
		case action == "join" && r.Method == http.MethodPost:
			joinRoom(gs, w, r, roomID, userID)
		case action == "leave" && r.Method == http.MethodPost:
			if err := gs.Coordinator.Leave(r.Context(), roomID, userID); err != nil {
				writeRoomError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case action == "kick" && r.Method == http.MethodPost:
			kickFromRoom(gs, w, r, roomID, userID)
		case action == "settings" && r.Method == http.MethodPatch:
			updateSettings(gs, w, r, roomID, userID)
		case action == "start" && r.Method == http.MethodPost:
			startRoom(gs, w, r, roomID, userID)
		case action == "close" && r.Method == http.MethodPost:
			if err := gs.Coordinator.Close(r.Context(), userID, roomID); err != nil {
				writeRoomError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case action == "spectate" && r.Method == http.MethodPost:
			spectate(gs, w, r, roomID, +1)
		case action == "spectate" && r.Method == http.MethodDelete:
			spectate(gs, w, r, roomID, -1)
		default:
			http.Error(w, "unknown room action", http.StatusNotFound)
		}
	}
}

func getRoom(gs *RoomServer, w http.ResponseWriter, roomID uuid.UUID) {
	snap, err := gs.Coordinator.Room(roomID)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

type joinResponse struct {
	Participant room.Participant `json:"participant"`
	Room        room.Snapshot    `json:"room"`
}

func joinRoom(gs *RoomServer, w http.ResponseWriter, r *http.Request, roomID, userID uuid.UUID) {
	p, snap, err := gs.Coordinator.Join(r.Context(), roomID, userID)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(joinResponse{Participant: p, Room: snap})
}

func kickFromRoom(gs *RoomServer, w http.ResponseWriter, r *http.Request, roomID, actorID uuid.UUID) {
	var req struct {
		UserID uuid.UUID `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		http.Error(w, "invalid kick payload", http.StatusBadRequest)
		return
	}
	if err := gs.Coordinator.Kick(r.Context(), actorID, roomID, req.UserID); err != nil {
		writeRoomError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func updateSettings(gs *RoomServer, w http.ResponseWriter, r *http.Request, roomID, actorID uuid.UUID) {
	var patch room.Settings
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	snap, err := gs.Coordinator.UpdateSettings(r.Context(), actorID, roomID, patch)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

type startResponse struct {
	MatchID uuid.UUID     `json:"matchId"`
	Room    room.Snapshot `json:"room"`
}

func startRoom(gs *RoomServer, w http.ResponseWriter, r *http.Request, roomID, actorID uuid.UUID) {
	var params coordinator.MatchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && err.Error() != "EOF" {
		http.Error(w, "invalid match params", http.StatusBadRequest)
		return
	}
	matchID, snap, err := gs.Coordinator.Start(r.Context(), actorID, roomID, params)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(startResponse{MatchID: matchID, Room: snap})
}

func spectate(gs *RoomServer, w http.ResponseWriter, r *http.Request, roomID uuid.UUID, delta int) {
	snap, err := gs.Coordinator.Spectate(r.Context(), roomID, delta)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
