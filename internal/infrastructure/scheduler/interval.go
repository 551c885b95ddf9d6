// Package scheduler drives recurring jobs off an explicit ticker so tests
// can call RunOnce on the job directly instead of waiting on wall-clock
// intervals.
package scheduler

import (
	"context"
	"time"

	"putshield-service/internal/application"

	"go.uber.org/zap"
)

// Job is anything runnable on an interval.
type Job interface {
	RunOnce(ctx context.Context) (application.SettlementStats, error)
}

var _ application.Worker = (*Interval)(nil)

// Interval runs a job on a fixed period until the context is canceled. The
// first run happens one period after Start; correctness never depends on a
// single runner because the job itself is idempotent.
type Interval struct {
	Job   Job
	Every time.Duration
	Log   *zap.Logger
}

func (s *Interval) Start(ctx context.Context) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	every := s.Every
	if every <= 0 {
		every = time.Hour
	}

	t := time.NewTicker(every)
	defer t.Stop()

	log.Info("scheduler.started", zap.Duration("every", every))
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler.stopped")
			return
		case <-t.C:
			if _, err := s.Job.RunOnce(ctx); err != nil {
				log.Warn("scheduler.run_failed", zap.Error(err))
			}
		}
	}
}
