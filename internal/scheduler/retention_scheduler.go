// Package scheduler runs periodic maintenance for the console.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes activity entries older than a given age.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// RetentionScheduler trims the activity log on a fixed interval.
type RetentionScheduler struct {
	pruner        Pruner
	retention     time.Duration
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

// NewRetentionScheduler creates a scheduler keeping retention worth of entries.
func NewRetentionScheduler(pruner Pruner, retention time.Duration, logger *slog.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		pruner:        pruner,
		retention:     retention,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Hour,
	}
}

// Start begins the scheduler loop. It returns when ctx is done or Stop is
// called. A zero retention disables pruning.
func (s *RetentionScheduler) Start(ctx context.Context) {
	if s.retention <= 0 {
		s.logger.Info("activity retention disabled")
		return
	}

	s.logger.Info("starting retention scheduler", "retention", s.retention, "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.prune(ctx)

	for {
		select {
		case <-ticker.C:
			s.prune(ctx)
		case <-s.stopChan:
			s.logger.Info("retention scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("retention scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *RetentionScheduler) Stop() {
	close(s.stopChan)
}

func (s *RetentionScheduler) prune(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := s.pruner.DeleteOlderThan(ctx, s.retention)
	if err != nil {
		s.logger.Error("failed to prune activity log", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("pruned activity log", "removed", removed)
	}
}
