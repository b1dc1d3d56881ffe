package scheduler

import (
	"context"
	"time"

	"lotshoppr_backend/platform/logger"
)

const defaultStaleLeadSweepInterval = time.Hour

// LeadExpirer closes open leads that have gone quiet. Implemented by the
// lead management service.
type LeadExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleLeadSweeper periodically marks leads with no activity for maxIdle as lost.
type StaleLeadSweeper struct {
	expirer  LeadExpirer
	log      *logger.Logger
	interval time.Duration
	maxIdle  time.Duration
	now      func() time.Time
}

// NewStaleLeadSweeper returns nil when maxIdle is not positive, which disables sweeping.
func NewStaleLeadSweeper(expirer LeadExpirer, log *logger.Logger, interval, maxIdle time.Duration) *StaleLeadSweeper {
	if maxIdle <= 0 || expirer == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultStaleLeadSweepInterval
	}

	return &StaleLeadSweeper{
		expirer:  expirer,
		log:      log,
		interval: interval,
		maxIdle:  maxIdle,
		now:      time.Now,
	}
}

func (s *StaleLeadSweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StaleLeadSweeper) sweep(ctx context.Context) {
	expired, err := s.expirer.ExpireStale(ctx, s.now().Add(-s.maxIdle))
	if err != nil {
		s.log.Warn("stale lead sweep failed", "error", err)
		return
	}

	if expired > 0 {
		s.log.Info("stale lead sweep closed idle leads", "expired", expired)
	}
}
