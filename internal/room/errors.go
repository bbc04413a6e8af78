// internal/room/errors.go
package room

import "errors"

// All room-engine failures are synchronous, recoverable rejections of a single
// control request. Room state is left untouched when any of these is returned.
var (
	// ErrNotHost is returned when a privileged action is attempted by a
	// non-host user.
	ErrNotHost = errors.New("user is not the room host")

	// ErrRoomNotFound is returned when the room ID (or code) is unknown.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomClosed is returned for actions against a closed room.
	ErrRoomClosed = errors.New("room is closed")

	// ErrRoomAlreadyStarted is returned for actions against a started room.
	ErrRoomAlreadyStarted = errors.New("room already started")

	// ErrRoomFull is returned when a join finds no free slot.
	ErrRoomFull = errors.New("room is full")

	// ErrInvalidModeTransition is returned when a settings change would leave
	// more occupants than the new layout can seat.
	ErrInvalidModeTransition = errors.New("occupied slots exceed new mode capacity")

	// ErrInvalidTransition is returned for a status change not allowed from
	// the room's current status.
	ErrInvalidTransition = errors.New("invalid room status transition")

	// ErrNotInRoom is returned when a leave or kick targets a user who holds
	// no slot in the room.
	ErrNotInRoom = errors.New("user is not in the room")

	// ErrAlreadyInRoom is returned when a user who already holds a slot tries
	// to join again.
	ErrAlreadyInRoom = errors.New("user already in the room")

	// ErrCannotKickHost is returned when a kick targets the host. Hosts leave
	// by closing the room, never by kicking themselves.
	ErrCannotKickHost = errors.New("host cannot be kicked")
)
