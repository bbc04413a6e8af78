// internal/coordinator/events.go
package coordinator

import (
	"github.com/google/uuid"

	"github.com/openarena/muster/internal/room"
)

// EventType names a room-scoped broadcast event.
type EventType string

const (
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventParticipantKicked EventType = "participant_kicked"
	EventSettingsUpdate    EventType = "room_settings_update"
	EventRoomStarted       EventType = "room_started"
	EventRoomClosed        EventType = "room_closed"

	// EventKickedFromRoom is delivered only to the removed user, never
	// broadcast. The kicked client must navigate away, unlike the rest of the
	// room which just refetches.
	EventKickedFromRoom EventType = "kicked_from_room"
)

// CloseReason explains a room_closed event.
type CloseReason string

const (
	ReasonHostLeft CloseReason = "host_left"
	ReasonClosed   CloseReason = "closed"
	ReasonExpired  CloseReason = "expired"
)

// Event is a change notification fanned out to every client subscribed to the
// room. Clients treat any event as "invalidate and refetch": the fields are
// display hints, not a patch protocol.
type Event struct {
	Type   EventType `json:"type"`
	RoomID uuid.UUID `json:"room_id"`

	UserID  uuid.UUID `json:"user_id,omitempty"`
	ActorID uuid.UUID `json:"actor_id,omitempty"`
	Slot    int       `json:"slot,omitempty"`

	MatchID uuid.UUID   `json:"match_id,omitempty"`
	Reason  CloseReason `json:"reason,omitempty"`

	Mode       room.Mode `json:"mode,omitempty"`
	Map        string    `json:"map,omitempty"`
	Region     string    `json:"region,omitempty"`
	MaxSlots   int       `json:"max_slots,omitempty"`
	Spectators int       `json:"spectators,omitempty"`
}

// Publisher fans events out to all clients subscribed to a room. The
// coordinator publishes while still holding the room's mutation lock, so a
// Publisher sees events for one room in mutation order and must not block.
type Publisher interface {
	Publish(roomID uuid.UUID, ev Event)
	PublishTo(roomID, userID uuid.UUID, ev Event)
}

func settingsEvent(r *room.Room) Event {
	return Event{
		Type:       EventSettingsUpdate,
		RoomID:     r.ID,
		Mode:       r.Mode,
		Map:        r.Map,
		Region:     r.Region,
		MaxSlots:   r.MaxSlots,
		Spectators: r.SpectatorCount,
	}
}
