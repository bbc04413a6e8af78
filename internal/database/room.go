package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openarena/muster/internal/room"
)

// Room state is authoritative in memory; these rows are an audit archive
// written when a room reaches a terminal state, plus the match records the
// start hand-off produces.

// InsertRoomArchive records a terminal room and its final roster.
func InsertRoomArchive(ctx context.Context, snap room.Snapshot, finalState string) error {
	if err := ready(); err != nil {
		return err
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO room_archive (
			id, room_code, host_user_id, mode, map, region,
			max_slots, spectator_count, created_at, auto_close_sec, final_state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.Exec(ctx, q,
			snap.ID, snap.Code, snap.HostID, string(snap.Mode), snap.Map, snap.Region,
			snap.MaxSlots, snap.SpectatorCount, snap.CreatedAt, snap.AutoCloseTimer, finalState,
		)
		if err != nil {
			return err
		}

		pq := `
		INSERT INTO room_archive_participants (room_id, user_id, slot_number, joined_at)
		VALUES ($1, $2, $3, $4)
		`
		for _, p := range snap.Participants {
			if _, err := tx.Exec(ctx, pq, snap.ID, p.UserID, p.SlotNumber, p.JoinedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertMatch records a created match and the roster it inherited from the
// room, with each participant's slot (and therefore team) at start time.
func InsertMatch(ctx context.Context, matchID, hostID uuid.UUID, snap room.Snapshot) error {
	if err := ready(); err != nil {
		return err
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO matches (id, room_id, host_user_id, mode, map, region)
		VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.Exec(ctx, q, matchID, snap.ID, hostID, string(snap.Mode), snap.Map, snap.Region)
		if err != nil {
			return err
		}

		pq := `
		INSERT INTO match_participants (match_id, user_id, slot_number, team)
		VALUES ($1, $2, $3, $4)
		`
		for _, p := range snap.Participants {
			team, _ := room.SlotToTeamPosition(snap.Mode, p.SlotNumber)
			if _, err := tx.Exec(ctx, pq, matchID, p.UserID, p.SlotNumber, team); err != nil {
				return err
			}
		}
		return nil
	})
}

// Archive adapts the package-level archive writer to the coordinator's
// Archiver interface.
type Archive struct{}

func (Archive) ArchiveRoom(ctx context.Context, snap room.Snapshot, finalState string) error {
	return InsertRoomArchive(ctx, snap, finalState)
}
