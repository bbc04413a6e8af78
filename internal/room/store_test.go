// internal/room/store_test.go
package room

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateSeatsHost(t *testing.T) {
	s := NewStore(nil)
	host := uuid.New()

	snap, err := s.Create(host, Settings{Mode: ModeSquad})
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, snap.Status)
	assert.Equal(t, 24, snap.MaxSlots)
	assert.Len(t, snap.Code, CodeLength)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, host, snap.Participants[0].UserID)
	assert.Equal(t, 1, snap.Participants[0].SlotNumber)
}

func TestStoreGetByCode(t *testing.T) {
	s := NewStore(nil)
	snap, err := s.Create(uuid.New(), Settings{Mode: ModeDuo})
	require.NoError(t, err)

	found, err := s.GetByCode(snap.Code)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, found.ID)

	_, err = s.GetByCode("ZZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// TestConcurrentJoinsNeverShareSlots is the double-assignment race test: more
// simultaneous joins than free slots must yield exactly freeSlots successes
// with unique slot numbers, the rest failing RoomFull.
func TestConcurrentJoinsNeverShareSlots(t *testing.T) {
	s := NewStore(nil)
	host := uuid.New()
	snap, err := s.Create(host, Settings{Mode: ModeSolo, MaxSlots: 8})
	require.NoError(t, err)

	freeSlots := snap.MaxSlots - 1 // host holds slot 1
	contenders := freeSlots + 12

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned []int
		fullErrs int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			err := s.Mutate(snap.ID, func(r *Room) error {
				p, err := Join(r, userID, time.Now())
				if err != nil {
					return err
				}
				mu.Lock()
				assigned = append(assigned, p.SlotNumber)
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				if err == ErrRoomFull {
					fullErrs++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, assigned, freeSlots)
	assert.Equal(t, contenders-freeSlots, fullErrs)

	seen := map[int]bool{}
	for _, slot := range assigned {
		assert.False(t, seen[slot], "slot %d assigned twice", slot)
		assert.Greater(t, slot, 1)
		assert.LessOrEqual(t, slot, snap.MaxSlots)
		seen[slot] = true
	}
}

func TestStoreMutationsOnDifferentRoomsAreIndependent(t *testing.T) {
	s := NewStore(nil)
	a, err := s.Create(uuid.New(), Settings{Mode: ModeDuo})
	require.NoError(t, err)
	b, err := s.Create(uuid.New(), Settings{Mode: ModeSquad})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		id := a.ID
		if i%2 == 0 {
			id = b.ID
		}
		go func() {
			defer wg.Done()
			s.Mutate(id, func(r *Room) error {
				_, err := Join(r, uuid.New(), time.Now())
				return err
			})
		}()
	}
	wg.Wait()

	aSnap, _ := s.Get(a.ID)
	bSnap, _ := s.Get(b.ID)
	assert.Len(t, aSnap.Participants, 11)
	assert.Len(t, bSnap.Participants, 11)
}

// TestStatusMonotonic verifies no sequence of transitions moves a room backward.
func TestStatusMonotonic(t *testing.T) {
	s := NewStore(nil)
	snap, err := s.Create(uuid.New(), Settings{})
	require.NoError(t, err)

	require.NoError(t, s.Mutate(snap.ID, func(r *Room) error {
		return Transition(r, StatusClosed)
	}))

	for _, next := range []Status{StatusOpen, StatusStarted, StatusClosed} {
		err := s.Mutate(snap.ID, func(r *Room) error {
			return Transition(r, next)
		})
		assert.ErrorIs(t, err, ErrInvalidTransition, "closed -> %s must be rejected", next)
	}

	got, err := s.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, got.Status)
}

func TestJoinAfterCloseRejected(t *testing.T) {
	s := NewStore(nil)
	snap, err := s.Create(uuid.New(), Settings{})
	require.NoError(t, err)

	require.NoError(t, s.Mutate(snap.ID, func(r *Room) error {
		return Transition(r, StatusClosed)
	}))

	err = s.Mutate(snap.ID, func(r *Room) error {
		_, err := Join(r, uuid.New(), time.Now())
		return err
	})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestExpiredScan(t *testing.T) {
	s := NewStore(nil)
	fresh, err := s.Create(uuid.New(), Settings{})
	require.NoError(t, err)
	stale, err := s.Create(uuid.New(), Settings{})
	require.NoError(t, err)
	require.NoError(t, s.SetAutoClose(stale.ID, 60))

	now := time.Now().Add(90 * time.Second)
	expired := s.Expired(now)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0])
	_ = fresh
}

func TestEvictRemovesRoomAndCode(t *testing.T) {
	s := NewStore(nil)
	snap, err := s.Create(uuid.New(), Settings{})
	require.NoError(t, err)

	s.Evict(snap.ID)

	_, err = s.Get(snap.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = s.GetByCode(snap.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Empty(t, s.List())
}

func TestLeaveFreesSlotForReuse(t *testing.T) {
	s := NewStore(nil)
	snap, err := s.Create(uuid.New(), Settings{Mode: ModeSquad})
	require.NoError(t, err)

	leaver := uuid.New()
	require.NoError(t, s.Mutate(snap.ID, func(r *Room) error {
		_, err := Join(r, leaver, time.Now())
		return err
	}))

	var freed int
	require.NoError(t, s.Mutate(snap.ID, func(r *Room) error {
		p, err := Leave(r, leaver)
		freed = p.SlotNumber
		return err
	}))
	assert.Equal(t, 2, freed)

	var reused int
	require.NoError(t, s.Mutate(snap.ID, func(r *Room) error {
		p, err := Join(r, uuid.New(), time.Now())
		reused = p.SlotNumber
		return err
	}))
	assert.Equal(t, freed, reused, "freed slot is immediately assignable")
}
