// internal/room/store.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store holds every live room in memory and serializes mutations per room.
//
// The store mutex only guards the lookup maps. Each room carries its own
// mutex, held for the full duration of a Mutate call, so two mutations of the
// same room can never interleave while different rooms proceed in parallel.
// This per-room linearization is what makes lowest-free-slot assignment safe
// under simultaneous joins.
type Store struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*entry
	codes  map[string]uuid.UUID
	logger *logrus.Logger
}

type entry struct {
	mu   sync.Mutex
	room *Room
}

// NewStore initializes an empty Store.
func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		rooms:  make(map[uuid.UUID]*entry),
		codes:  make(map[string]uuid.UUID),
		logger: logger,
	}
}

// Create builds a new open room hosted by hostID and seats the host on the
// lowest slot (slot 1). Returns the initial snapshot.
func (s *Store) Create(hostID uuid.UUID, settings Settings) (Snapshot, error) {
	mode := settings.Mode
	if !mode.Valid() {
		mode = ModeSquad
	}

	now := time.Now()
	r := &Room{
		ID:             uuid.New(),
		HostID:         hostID,
		Mode:           mode,
		Map:            settings.Map,
		Region:         settings.Region,
		MaxSlots:       Capacity(mode, settings.MaxSlots),
		Participants:   make(map[int]*Participant),
		CreatedAt:      now,
		AutoCloseTimer: DefaultAutoCloseSec,
		Status:         StatusOpen,
	}

	if _, err := Join(r, hostID, now); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		r.Code = NewCode()
		if _, taken := s.codes[r.Code]; !taken {
			break
		}
	}
	s.rooms[r.ID] = &entry{room: r}
	s.codes[r.Code] = r.ID

	s.logger.WithFields(logrus.Fields{
		"room": r.ID, "code": r.Code, "host": hostID, "mode": mode,
	}).Info("room created")

	return r.Snapshot(), nil
}

// SetAutoClose overrides the room's countdown, in seconds. Used at creation
// time only; the deadline itself is enforced by the expiry sweeper.
func (s *Store) SetAutoClose(id uuid.UUID, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	return s.Mutate(id, func(r *Room) error {
		r.AutoCloseTimer = seconds
		return nil
	})
}

// Mutate runs fn against the room under its mutation lock. It is the single
// serialized entry point for writes: fn observes a stable room and any error
// it returns leaves the room untouched by convention (helpers in ops.go
// reject before mutating).
func (s *Store) Mutate(id uuid.UUID, fn func(*Room) error) error {
	s.mu.Lock()
	e, ok := s.rooms[id]
	s.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// Get returns a snapshot of the room.
func (s *Store) Get(id uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := s.Mutate(id, func(r *Room) error {
		snap = r.Snapshot()
		return nil
	})
	return snap, err
}

// GetByCode resolves a shareable room code to a snapshot.
func (s *Store) GetByCode(code string) (Snapshot, error) {
	s.mu.Lock()
	id, ok := s.codes[code]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	return s.Get(id)
}

// List returns snapshots of every live room, for listing endpoints.
func (s *Store) List() []Snapshot {
	ids := s.ids()
	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, err := s.Get(id); err == nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// Expired returns the IDs of open rooms whose deadline has elapsed at now.
func (s *Store) Expired(now time.Time) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range s.ids() {
		s.Mutate(id, func(r *Room) error {
			if r.Expired(now) {
				out = append(out, id)
			}
			return nil
		})
	}
	return out
}

// Evict removes a room from the store. Callers close the room first; a stale
// mutation racing an eviction still sees the closed status and rejects.
func (s *Store) Evict(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[id]
	if !ok {
		return
	}
	delete(s.codes, e.room.Code)
	delete(s.rooms, id)
	s.logger.WithField("room", id).Info("room evicted")
}

func (s *Store) ids() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}
