package services

import (
	"context"
	"sync"
	"time"

	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

// RetentionService periodically deletes readings older than the retention period
type RetentionService struct {
	store     ReadingStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *utils.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRetentionService creates a retention service. It does nothing until started.
func NewRetentionService(store ReadingStore, retention, interval time.Duration, logger *utils.Logger) *RetentionService {
	return &RetentionService{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger.Named("retention_service"),
	}
}

// Prune deletes every reading older than the retention period
func (s *RetentionService) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)

	deleted, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("Pruned expired readings",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

// Start prunes once and then on every interval until ctx is done or Stop is called
func (s *RetentionService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			if _, err := s.Prune(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Failed to prune readings", zap.Error(err))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	s.logger.Info("Retention service started",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop ends the prune loop and waits for it to exit
func (s *RetentionService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
