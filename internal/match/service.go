// internal/match/service.go
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/cache"
	"github.com/openarena/muster/internal/coordinator"
	"github.com/openarena/muster/internal/database"
	"github.com/openarena/muster/internal/room"
)

// Service is the live-match collaborator behind coordinator.MatchService. It
// records the match and roster in postgres and journals the creation; the
// actual match simulation is a separate system that picks the record up.
type Service struct {
	logger *logrus.Logger
}

// New builds the match service.
func New(logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{logger: logger}
}

// compile-time interface check
var _ coordinator.MatchService = (*Service)(nil)

// CreateMatch mints a match ID and persists the roster the room hands over.
// An error here leaves the room open; the coordinator calls this at most once
// per room inside the room's critical section.
func (s *Service) CreateMatch(ctx context.Context, hostID uuid.UUID, snap room.Snapshot, params coordinator.MatchParams) (uuid.UUID, error) {
	if len(snap.Participants) == 0 {
		return uuid.Nil, fmt.Errorf("cannot start a match with an empty roster")
	}

	matchID := uuid.New()
	if err := database.InsertMatch(ctx, matchID, hostID, snap); err != nil {
		return uuid.Nil, fmt.Errorf("persist match: %w", err)
	}

	if cache.Enabled() {
		rec := cache.RoomEventRecord{
			RoomID:      snap.ID,
			EventType:   "match_created",
			ActorUserID: hostID,
			Payload: map[string]interface{}{
				"match_id":     matchID.String(),
				"mode":         string(snap.Mode),
				"participants": len(snap.Participants),
				"params":       map[string]interface{}(params),
			},
			Timestamp: time.Now().UnixMilli(),
		}
		if err := cache.PublishRoomEvent(ctx, rec); err != nil {
			s.logger.WithField("match", matchID).WithError(err).Warn("match journal publish failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"match": matchID, "room": snap.ID, "players": len(snap.Participants),
	}).Info("match created")
	return matchID, nil
}
