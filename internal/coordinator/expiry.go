// internal/coordinator/expiry.go
package coordinator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often the scheduler scans for elapsed deadlines.
const DefaultSweepInterval = 30 * time.Second

// ExpiryScheduler is the sole authoritative enforcement of room deadlines. It
// runs independently of any client connection: a room with zero subscribers
// still expires on schedule. Client-side countdowns are display only.
type ExpiryScheduler struct {
	coord    *Coordinator
	interval time.Duration
	logger   *logrus.Logger
}

// NewExpiryScheduler builds a scheduler sweeping every interval (or
// DefaultSweepInterval when interval <= 0).
func NewExpiryScheduler(c *Coordinator, interval time.Duration, logger *logrus.Logger) *ExpiryScheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ExpiryScheduler{coord: c, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled. Each sweep closes every open room past
// its deadline, acting as the system actor with reason "expired".
func (s *ExpiryScheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval).Info("expiry scheduler running")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry scheduler stopped")
			return
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Sweep runs one scan at the given instant. Exposed separately so deadline
// enforcement can be driven (and tested) without waiting on the ticker.
func (s *ExpiryScheduler) Sweep(ctx context.Context, now time.Time) int {
	return s.coord.CloseExpired(ctx, now)
}
