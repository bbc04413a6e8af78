// internal/coordinator/expiry_test.go
package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarena/muster/internal/room"
)

// TestSweepClosesElapsedRooms: a room past its deadline is force-closed with
// reason expired even though nobody is subscribed to it.
func TestSweepClosesElapsedRooms(t *testing.T) {
	c, pub, _ := setupTestCoordinator(t)
	sched := NewExpiryScheduler(c, time.Minute, nil)

	stale, err := c.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 60)
	require.NoError(t, err)
	fresh, err := c.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 3600)
	require.NoError(t, err)

	closed := sched.Sweep(context.Background(), time.Now().Add(90*time.Second))
	assert.Equal(t, 1, closed)

	_, err = c.Room(stale.ID)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, err = c.Room(fresh.ID)
	assert.NoError(t, err, "room inside its deadline stays open")

	ev := pub.lastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, EventRoomClosed, ev.Type)
	assert.Equal(t, ReasonExpired, ev.Reason)
	assert.Equal(t, stale.ID, ev.RoomID)
}

func TestSweepNothingElapsed(t *testing.T) {
	c, _, _ := setupTestCoordinator(t)
	sched := NewExpiryScheduler(c, time.Minute, nil)

	_, err := c.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, sched.Sweep(context.Background(), time.Now()))
}

func TestSweepIgnoresStartedRooms(t *testing.T) {
	c, _, _ := setupTestCoordinator(t)
	sched := NewExpiryScheduler(c, time.Minute, nil)

	host := uuid.New()
	snap, err := c.CreateRoom(context.Background(), host, room.Settings{Mode: room.ModeDuo}, 60)
	require.NoError(t, err)

	_, _, err = c.Start(context.Background(), host, snap.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, sched.Sweep(context.Background(), time.Now().Add(time.Hour)))
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _, _ := setupTestCoordinator(t)
	sched := NewExpiryScheduler(c, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
