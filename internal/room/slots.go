// internal/room/slots.go
//
// Pure slot-allocation helpers. Nothing here touches locks or channels; the
// Store is responsible for serializing calls per room, which is what makes the
// lowest-free-slot rule race-safe.
package room

import "sort"

// TeamLayout describes one team in a mode's layout.
type TeamLayout struct {
	Team      int `json:"team"`      // 1-based team index
	Positions int `json:"positions"` // seats in this team
}

// teamSize returns how many positions each team holds for the mode, or 0 for
// flat (solo) layouts.
func teamSize(mode Mode) int {
	switch mode {
	case ModeSquad:
		return 4
	case ModeDuo:
		return 2
	}
	return 0
}

// Capacity returns the total slot count for a mode. Squad is 6 teams of 4,
// duo is 12 teams of 2 (both 24). Solo is a flat count taken from maxSlots,
// defaulting to DefaultSoloSlots when unset.
func Capacity(mode Mode, maxSlots int) int {
	switch mode {
	case ModeSquad:
		return 6 * 4
	case ModeDuo:
		return 12 * 2
	default:
		if maxSlots <= 0 {
			return DefaultSoloSlots
		}
		return maxSlots
	}
}

// LayoutFor maps a mode to its list of (team, positionsPerTeam). The sum of
// positions over the layout always equals Capacity(mode, maxSlots).
func LayoutFor(mode Mode, maxSlots int) []TeamLayout {
	size := teamSize(mode)
	if size == 0 {
		return []TeamLayout{{Team: 1, Positions: Capacity(mode, maxSlots)}}
	}
	teams := Capacity(mode, maxSlots) / size
	layout := make([]TeamLayout, teams)
	for i := range layout {
		layout[i] = TeamLayout{Team: i + 1, Positions: size}
	}
	return layout
}

// SlotToTeamPosition resolves a slot number to its (team, position) under the
// mode's layout. Rendering helper only; no side effects.
func SlotToTeamPosition(mode Mode, slot int) (team, position int) {
	size := teamSize(mode)
	if size == 0 {
		return 1, slot
	}
	return (slot-1)/size + 1, (slot-1)%size + 1
}

// AssignSlot picks the lowest-numbered free slot in r and returns it.
// Deterministic: identical room state always yields the same slot. Returns
// ErrRoomFull when every slot is occupied.
func AssignSlot(r *Room) (int, error) {
	cap := Capacity(r.Mode, r.MaxSlots)
	for slot := 1; slot <= cap; slot++ {
		if _, taken := r.Participants[slot]; !taken {
			return slot, nil
		}
	}
	return 0, ErrRoomFull
}

// FreeSlot removes the occupant of slot, if any. The slot becomes immediately
// assignable again; there is no hold period.
func FreeSlot(r *Room, slot int) {
	delete(r.Participants, slot)
}

// ReseatForMode switches r to newMode (and, for solo, newMax) and re-seats all
// participants by re-applying AssignSlot in joinedAt order, ties broken by the
// previous slot number.
//
// Callers must surface this to users: a re-seat may silently relocate a
// participant to a different team. If the current occupants exceed the new
// capacity the transition is rejected with ErrInvalidModeTransition and the
// room is left unchanged.
func ReseatForMode(r *Room, newMode Mode, newMax int) error {
	cap := Capacity(newMode, newMax)
	if len(r.Participants) > cap {
		return ErrInvalidModeTransition
	}

	seated := make([]*Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		seated = append(seated, p)
	}
	sort.Slice(seated, func(i, j int) bool {
		if seated[i].JoinedAt.Equal(seated[j].JoinedAt) {
			return seated[i].SlotNumber < seated[j].SlotNumber
		}
		return seated[i].JoinedAt.Before(seated[j].JoinedAt)
	})

	r.Mode = newMode
	r.MaxSlots = cap
	r.Participants = make(map[int]*Participant, len(seated))
	for _, p := range seated {
		slot, err := AssignSlot(r)
		if err != nil {
			// Unreachable: occupancy was checked against the new capacity.
			return err
		}
		p.SlotNumber = slot
		r.Participants[slot] = p
	}
	return nil
}
