package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionExpirer abandons sessions that stayed active for too long.
type SessionExpirer interface {
	AbandonExpired(ctx context.Context, maxAge time.Duration) (int, error)
}

// Sweeper periodically abandons stale sessions on a cron schedule.
type Sweeper struct {
	sessions SessionExpirer
	schedule string
	maxAge   time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(sessions SessionExpirer, schedule string, maxAge time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Start runs the sweeper until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("add sweep job %q: %w", s.schedule, err)
	}

	c.Start()
	s.logger.Info("session sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("max_age", s.maxAge),
	)

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("session sweeper stopped")
	return nil
}

// Sweep runs a single pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.sessions.AbandonExpired(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("failed to abandon expired sessions", zap.Int("abandoned", n), zap.Error(err))
		return
	}
	s.logger.Debug("sweep finished", zap.Int("abandoned", n))
}
