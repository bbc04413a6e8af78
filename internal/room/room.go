// internal/room/room.go
package room

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Mode is the team topology of a room. It determines the slot-to-team layout
// and the total capacity.
type Mode string

const (
	ModeSolo  Mode = "solo"
	ModeDuo   Mode = "duo"
	ModeSquad Mode = "squad"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSolo, ModeDuo, ModeSquad:
		return true
	}
	return false
}

// DefaultSoloSlots is the flat capacity of a solo room when the host does not
// configure one.
const DefaultSoloSlots = 32

// DefaultAutoCloseSec is how long a room stays open before the expiry sweeper
// force-closes it, unless the host picks a different timer.
const DefaultAutoCloseSec = 7200

// Status is the lifecycle state of a room. Transitions are strictly forward:
// open -> started, open -> closed. A started or closed room never re-opens.
type Status string

const (
	StatusOpen    Status = "open"
	StatusStarted Status = "started"
	StatusClosed  Status = "closed"
)

// CanTransition reports whether a room may move from s to next.
func (s Status) CanTransition(next Status) bool {
	return s == StatusOpen && (next == StatusStarted || next == StatusClosed)
}

// Settings is the host-mutable configuration of a room. Zero fields in a patch
// mean "leave unchanged".
type Settings struct {
	Mode     Mode   `json:"mode,omitempty"`
	Map      string `json:"map,omitempty"`
	Region   string `json:"region,omitempty"`
	MaxSlots int    `json:"maxSlots,omitempty"` // solo only; ignored for duo/squad
}

// Participant is one occupied slot in a room.
type Participant struct {
	UserID     uuid.UUID `json:"userId"`
	SlotNumber int       `json:"slotNumber"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Room is an ephemeral pre-match staging session. The struct itself carries no
// lock; all mutation happens through the Store, which serializes operations
// per room.
type Room struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"roomCode"`
	HostID uuid.UUID `json:"hostId"`

	Mode     Mode   `json:"mode"`
	Map      string `json:"map"`
	Region   string `json:"region"`
	MaxSlots int    `json:"maxSlots"`

	// Participants is keyed by slot number, which is unique within the room.
	Participants map[int]*Participant `json:"-"`

	SpectatorCount int `json:"spectatorCount"`

	CreatedAt      time.Time `json:"createdAt"`
	AutoCloseTimer int       `json:"autoCloseTimer"` // seconds

	Status Status `json:"status"`
}

// Deadline is the instant at which the expiry sweeper may close the room.
func (r *Room) Deadline() time.Time {
	return r.CreatedAt.Add(time.Duration(r.AutoCloseTimer) * time.Second)
}

// Expired reports whether the room is still open past its deadline.
func (r *Room) Expired(now time.Time) bool {
	return r.Status == StatusOpen && !now.Before(r.Deadline())
}

// ParticipantByUser finds the participant entry for userID, if present.
func (r *Room) ParticipantByUser(userID uuid.UUID) (*Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

// Snapshot is a read-only copy of a room handed to callers outside the Store.
// Everything outside the Store treats room state as immutable snapshots.
type Snapshot struct {
	ID             uuid.UUID     `json:"id"`
	Code           string        `json:"roomCode"`
	HostID         uuid.UUID     `json:"hostId"`
	Mode           Mode          `json:"mode"`
	Map            string        `json:"map"`
	Region         string        `json:"region"`
	MaxSlots       int           `json:"maxSlots"`
	Participants   []Participant `json:"participants"`
	SpectatorCount int           `json:"spectatorCount"`
	CreatedAt      time.Time     `json:"createdAt"`
	AutoCloseTimer int           `json:"autoCloseTimer"`
	Status         Status        `json:"status"`
}

// Snapshot copies the room into a detached value. Participants are sorted by
// slot number so clients render a stable roster.
func (r *Room) Snapshot() Snapshot {
	parts := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		parts = append(parts, *p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].SlotNumber < parts[j].SlotNumber })

	return Snapshot{
		ID:             r.ID,
		Code:           r.Code,
		HostID:         r.HostID,
		Mode:           r.Mode,
		Map:            r.Map,
		Region:         r.Region,
		MaxSlots:       r.MaxSlots,
		Participants:   parts,
		SpectatorCount: r.SpectatorCount,
		CreatedAt:      r.CreatedAt,
		AutoCloseTimer: r.AutoCloseTimer,
		Status:         r.Status,
	}
}
