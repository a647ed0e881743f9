package scheduler

import (
	"context"
	"fmt"
	"time"

	"ticketnepal/internal/logger"
)

type eventSweeper interface {
	SweepExpiredEvents(ctx context.Context) (int, error)
}

// Scheduler runs the expiry sweep once at start and then on every tick.
type Scheduler struct {
	sweeper  eventSweeper
	interval time.Duration
	logger   *logger.Logger
}

func New(sweeper eventSweeper, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: log}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.LogProcess("SCHEDULER", fmt.Sprintf("Event sweep started, runs every %v", s.interval))
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogProcess("SCHEDULER", "Event sweep stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.sweeper.SweepExpiredEvents(ctx)
	if err != nil {
		s.logger.Error("SCHEDULER", fmt.Sprintf("Event sweep failed: %v", err))
		return
	}
	if n > 0 {
		s.logger.Info("SCHEDULER", fmt.Sprintf("Swept %d expired event(s)", n))
	}
}
