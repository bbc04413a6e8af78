// internal/room/ops.go
//
// Mutation helpers applied to a *Room. These run only inside Store.Mutate, so
// they never take locks themselves. Each helper validates fully before
// touching the room: on error the room is unchanged.
package room

import (
	"time"

	"github.com/google/uuid"
)

// openOnly rejects mutations against rooms that are no longer open.
func openOnly(r *Room) error {
	switch r.Status {
	case StatusStarted:
		return ErrRoomAlreadyStarted
	case StatusClosed:
		return ErrRoomClosed
	}
	return nil
}

// Join seats userID on the lowest free slot and returns the new participant.
func Join(r *Room, userID uuid.UUID, now time.Time) (Participant, error) {
	if err := openOnly(r); err != nil {
		return Participant{}, err
	}
	if _, in := r.ParticipantByUser(userID); in {
		return Participant{}, ErrAlreadyInRoom
	}
	slot, err := AssignSlot(r)
	if err != nil {
		return Participant{}, err
	}
	p := &Participant{UserID: userID, SlotNumber: slot, JoinedAt: now}
	r.Participants[slot] = p
	return *p, nil
}

// Leave frees the slot held by userID and returns the removed participant.
// Also used for kicks; whether the removal is allowed is the coordinator's
// call, not the store's.
func Leave(r *Room, userID uuid.UUID) (Participant, error) {
	p, in := r.ParticipantByUser(userID)
	if !in {
		return Participant{}, ErrNotInRoom
	}
	removed := *p
	FreeSlot(r, p.SlotNumber)
	return removed, nil
}

// ApplySettings patches the host-mutable settings. A mode change (or a solo
// capacity change) re-seats every participant in joinedAt order; see
// ReseatForMode for the relocation caveat.
func ApplySettings(r *Room, patch Settings) error {
	if err := openOnly(r); err != nil {
		return err
	}

	newMode := r.Mode
	if patch.Mode != "" {
		if !patch.Mode.Valid() {
			return ErrInvalidModeTransition
		}
		newMode = patch.Mode
	}
	newMax := r.MaxSlots
	if patch.MaxSlots > 0 && newMode == ModeSolo {
		newMax = patch.MaxSlots
	}

	if newMode != r.Mode || Capacity(newMode, newMax) != r.MaxSlots {
		if err := ReseatForMode(r, newMode, newMax); err != nil {
			return err
		}
	}

	if patch.Map != "" {
		r.Map = patch.Map
	}
	if patch.Region != "" {
		r.Region = patch.Region
	}
	return nil
}

// Transition advances the room's status. Statuses only ever move forward:
// open -> started or open -> closed.
func Transition(r *Room, next Status) error {
	if !r.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	return nil
}

// AdjustSpectators bumps the informational spectator count, clamped at zero.
func AdjustSpectators(r *Room, delta int) {
	r.SpectatorCount += delta
	if r.SpectatorCount < 0 {
		r.SpectatorCount = 0
	}
}
