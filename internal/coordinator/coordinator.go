// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/cache"
	"github.com/openarena/muster/internal/room"
)

// SystemActor is the identity the expiry scheduler acts as. It may close any
// room; no client request ever carries it, since uuid.Nil never verifies as a
// real user.
var SystemActor = uuid.Nil

// MatchParams is the opaque match configuration the host supplies on start.
// The engine hands it to the match service untouched.
type MatchParams map[string]interface{}

// MatchService is the external live-match collaborator. CreateMatch is called
// exactly once per started room, with the roster snapshot taken at that
// instant.
type MatchService interface {
	CreateMatch(ctx context.Context, hostID uuid.UUID, snap room.Snapshot, params MatchParams) (uuid.UUID, error)
}

// Archiver persists terminal rooms for audit. Best-effort: failures are
// logged, never surfaced to clients.
type Archiver interface {
	ArchiveRoom(ctx context.Context, snap room.Snapshot, finalState string) error
}

// Coordinator enforces host authority and lifecycle policy on top of the room
// store. It is the only component that mutates rooms; everything it publishes
// goes out while the room's mutation lock is still held, so subscribers
// observe events in mutation order.
type Coordinator struct {
	store   *room.Store
	pub     Publisher
	matches MatchService
	archive Archiver
	logger  *logrus.Logger
}

// New wires a Coordinator. matches may be nil if the deployment has no match
// service (start requests then fail). archive is optional; see SetArchiver.
func New(store *room.Store, pub Publisher, matches MatchService, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{store: store, pub: pub, matches: matches, logger: logger}
}

// SetArchiver installs the terminal-room archive sink.
func (c *Coordinator) SetArchiver(a Archiver) { c.archive = a }

// Store exposes read access for handlers. Handlers only ever read snapshots;
// mutation stays behind the coordinator.
func (c *Coordinator) Store() *room.Store { return c.store }

// CreateRoom opens a new room hosted by hostID. The host lands on slot 1.
func (c *Coordinator) CreateRoom(ctx context.Context, hostID uuid.UUID, settings room.Settings, autoCloseSec int) (room.Snapshot, error) {
	snap, err := c.store.Create(hostID, settings)
	if err != nil {
		return room.Snapshot{}, err
	}
	if autoCloseSec > 0 {
		if err := c.store.SetAutoClose(snap.ID, autoCloseSec); err == nil {
			snap.AutoCloseTimer = autoCloseSec
		}
	}
	c.journal(ctx, snap.ID, "room_created", hostID, map[string]interface{}{
		"mode": string(snap.Mode), "code": snap.Code,
	})
	return snap, nil
}

// Room returns a snapshot by ID.
func (c *Coordinator) Room(id uuid.UUID) (room.Snapshot, error) { return c.store.Get(id) }

// RoomByCode resolves a shareable code to a snapshot.
func (c *Coordinator) RoomByCode(code string) (room.Snapshot, error) { return c.store.GetByCode(code) }

// Rooms lists all live rooms.
func (c *Coordinator) Rooms() []room.Snapshot { return c.store.List() }

// Join seats userID in the room on the lowest free slot. Requires status open.
func (c *Coordinator) Join(ctx context.Context, roomID, userID uuid.UUID) (room.Participant, room.Snapshot, error) {
	var (
		p    room.Participant
		snap room.Snapshot
	)
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		var err error
		p, err = room.Join(r, userID, time.Now())
		if err != nil {
			return err
		}
		snap = r.Snapshot()
		c.pub.Publish(roomID, Event{
			Type: EventParticipantJoined, RoomID: roomID,
			UserID: userID, Slot: p.SlotNumber,
		})
		return nil
	})
	if err != nil {
		return room.Participant{}, room.Snapshot{}, err
	}
	return p, snap, nil
}

// Leave removes userID from the room. A non-host participant just frees their
// slot; the host leaving closes the room for everyone. There is no silent
// host hand-off.
func (c *Coordinator) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	closed := false
	var snap room.Snapshot
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if r.HostID == userID {
			if _, in := r.ParticipantByUser(userID); !in {
				return room.ErrNotInRoom
			}
			if err := room.Transition(r, room.StatusClosed); err != nil {
				return err
			}
			closed = true
			snap = r.Snapshot()
			c.pub.Publish(roomID, Event{Type: EventRoomClosed, RoomID: roomID, Reason: ReasonHostLeft})
			return nil
		}

		p, err := room.Leave(r, userID)
		if err != nil {
			return err
		}
		c.pub.Publish(roomID, Event{
			Type: EventParticipantLeft, RoomID: roomID,
			UserID: userID, Slot: p.SlotNumber,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if closed {
		c.retire(ctx, snap, userID, ReasonHostLeft)
	}
	return nil
}

// Kick removes targetID from the room. Host-only. The target additionally
// receives a direct kicked_from_room notice, since its required client action
// (forced navigation away) differs from the rest of the room.
func (c *Coordinator) Kick(ctx context.Context, actorID, roomID, targetID uuid.UUID) error {
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if r.HostID != actorID {
			return room.ErrNotHost
		}
		if targetID == r.HostID {
			return room.ErrCannotKickHost
		}
		p, err := room.Leave(r, targetID)
		if err != nil {
			return err
		}
		c.pub.Publish(roomID, Event{
			Type: EventParticipantKicked, RoomID: roomID,
			UserID: targetID, ActorID: actorID, Slot: p.SlotNumber,
		})
		c.pub.PublishTo(roomID, targetID, Event{
			Type: EventKickedFromRoom, RoomID: roomID, ActorID: actorID,
		})
		return nil
	})
	if err != nil {
		return err
	}
	c.journal(ctx, roomID, "participant_kicked", actorID, map[string]interface{}{
		"target": targetID.String(),
	})
	return nil
}

// UpdateSettings patches mode/map/region (and solo capacity). Host-only. A
// mode change re-seats every participant in joinedAt order, which may move
// them between teams; clients learn about it from the broadcast and refetch.
func (c *Coordinator) UpdateSettings(ctx context.Context, actorID, roomID uuid.UUID, patch room.Settings) (room.Snapshot, error) {
	var snap room.Snapshot
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if r.HostID != actorID {
			return room.ErrNotHost
		}
		if err := room.ApplySettings(r, patch); err != nil {
			return err
		}
		snap = r.Snapshot()
		c.pub.Publish(roomID, settingsEvent(r))
		return nil
	})
	if err != nil {
		return room.Snapshot{}, err
	}
	return snap, nil
}

// Spectate adjusts the informational spectator count. Any authenticated user
// may spectate; no per-spectator state is kept.
func (c *Coordinator) Spectate(ctx context.Context, roomID uuid.UUID, delta int) (room.Snapshot, error) {
	var snap room.Snapshot
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if r.Status != room.StatusOpen {
			return room.ErrRoomClosed
		}
		room.AdjustSpectators(r, delta)
		snap = r.Snapshot()
		c.pub.Publish(roomID, settingsEvent(r))
		return nil
	})
	if err != nil {
		return room.Snapshot{}, err
	}
	return snap, nil
}

// Start converts the room into a live match. Host-only, open rooms only. The
// match is created inside the room's critical section so it happens exactly
// once and the room stays open (fail closed) if the match service rejects it.
func (c *Coordinator) Start(ctx context.Context, actorID, roomID uuid.UUID, params MatchParams) (uuid.UUID, room.Snapshot, error) {
	var (
		matchID uuid.UUID
		snap    room.Snapshot
	)
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if r.HostID != actorID {
			return room.ErrNotHost
		}
		switch r.Status {
		case room.StatusStarted:
			return room.ErrRoomAlreadyStarted
		case room.StatusClosed:
			return room.ErrRoomClosed
		}
		if c.matches == nil {
			return fmt.Errorf("no match service configured")
		}

		roster := r.Snapshot()
		id, err := c.matches.CreateMatch(ctx, actorID, roster, params)
		if err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		matchID = id

		// Cannot fail: open -> started was checked above.
		if err := room.Transition(r, room.StatusStarted); err != nil {
			return err
		}
		snap = r.Snapshot()
		c.pub.Publish(roomID, Event{Type: EventRoomStarted, RoomID: roomID, MatchID: matchID})
		return nil
	})
	if err != nil {
		return uuid.Nil, room.Snapshot{}, err
	}

	// The match owns the participants from here; detach the room.
	c.store.Evict(roomID)
	c.archiveRoom(ctx, snap, string(room.StatusStarted))
	c.journal(ctx, roomID, "room_started", actorID, map[string]interface{}{
		"match_id": matchID.String(),
	})
	return matchID, snap, nil
}

// Close ends the room. Allowed for the host or the system actor (expiry
// scheduler); everyone else gets NotHost.
func (c *Coordinator) Close(ctx context.Context, actorID, roomID uuid.UUID) error {
	return c.close(ctx, actorID, roomID, ReasonClosed)
}

func (c *Coordinator) close(ctx context.Context, actorID, roomID uuid.UUID, reason CloseReason) error {
	var snap room.Snapshot
	err := c.store.Mutate(roomID, func(r *room.Room) error {
		if actorID != SystemActor && r.HostID != actorID {
			return room.ErrNotHost
		}
		if err := room.Transition(r, room.StatusClosed); err != nil {
			return err
		}
		snap = r.Snapshot()
		c.pub.Publish(roomID, Event{Type: EventRoomClosed, RoomID: roomID, Reason: reason})
		return nil
	})
	if err != nil {
		return err
	}
	c.retire(ctx, snap, actorID, reason)
	return nil
}

// CloseExpired force-closes every open room whose deadline has elapsed at
// now, acting as the system actor. Returns how many rooms were closed.
func (c *Coordinator) CloseExpired(ctx context.Context, now time.Time) int {
	closed := 0
	for _, id := range c.store.Expired(now) {
		if err := c.close(ctx, SystemActor, id, ReasonExpired); err != nil {
			// A host may have closed or started it between scan and close.
			c.logger.WithField("room", id).WithError(err).Debug("expiry close skipped")
			continue
		}
		closed++
	}
	if closed > 0 {
		c.logger.WithField("count", closed).Info("closed expired rooms")
	}
	return closed
}

// retire evicts a closed room and records it in the archive and journal.
func (c *Coordinator) retire(ctx context.Context, snap room.Snapshot, actorID uuid.UUID, reason CloseReason) {
	c.store.Evict(snap.ID)
	c.archiveRoom(ctx, snap, string(room.StatusClosed))
	c.journal(ctx, snap.ID, "room_closed", actorID, map[string]interface{}{
		"reason": string(reason),
	})
}

func (c *Coordinator) archiveRoom(ctx context.Context, snap room.Snapshot, finalState string) {
	if c.archive == nil {
		return
	}
	if err := c.archive.ArchiveRoom(ctx, snap, finalState); err != nil {
		c.logger.WithField("room", snap.ID).WithError(err).Warn("room archive failed")
	}
}

func (c *Coordinator) journal(ctx context.Context, roomID uuid.UUID, eventType string, actorID uuid.UUID, payload map[string]interface{}) {
	if !cache.Enabled() {
		return
	}
	rec := cache.RoomEventRecord{
		RoomID:      roomID,
		EventType:   eventType,
		ActorUserID: actorID,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	if err := cache.PublishRoomEvent(ctx, rec); err != nil {
		c.logger.WithField("room", roomID).WithError(err).Warn("journal publish failed")
	}
}
