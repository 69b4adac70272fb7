package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domainErrors "github.com/cassiomorais/reminders/internal/domain/errors"
	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/infrastructure/observability"
)

// Lock serializes recovery passes across instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory creates a fresh lock handle per recovery pass.
type LockFactory func() Lock

// RecoveryService re-dispatches stored events that never finished processing.
// Runs are serialized across instances with a distributed lock, so boot-time
// recovery, the periodic loop and the on-demand endpoint never overlap.
type RecoveryService struct {
	dispatcher *event.Dispatcher
	newLock    LockFactory
	metrics    *observability.Metrics
	logger     zerolog.Logger
	batchSize  int
}

func NewRecoveryService(
	dispatcher *event.Dispatcher,
	newLock LockFactory,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	batchSize int,
) *RecoveryService {
	return &RecoveryService{
		dispatcher: dispatcher,
		newLock:    newLock,
		metrics:    metrics,
		logger:     logger.With().Str("component", "recovery_service").Logger(),
		batchSize:  batchSize,
	}
}

// Recover runs one recovery pass under the distributed lock. A non-positive
// limit falls back to the configured batch size. Returns
// ErrLockAcquisitionFailed when another instance holds the lock.
func (s *RecoveryService) Recover(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	lock := s.newLock()
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire recovery lock: %w", err)
	}
	if !acquired {
		return 0, domainErrors.ErrLockAcquisitionFailed
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release recovery lock")
		}
	}()

	count, err := s.dispatcher.ProcessUnprocessedEvents(ctx, limit)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil && count > 0 {
		s.metrics.EventsRecovered.Add(float64(count))
	}
	return count, nil
}

// RunLoop runs recovery every interval until the context is cancelled. Lock
// contention is expected with multiple instances and is not an error.
func (s *RecoveryService) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := s.Recover(ctx, 0)
			switch {
			case errors.Is(err, domainErrors.ErrLockAcquisitionFailed):
				s.logger.Debug().Msg("recovery lock held elsewhere, skipping pass")
			case err != nil:
				s.logger.Error().Err(err).Msg("recovery pass failed")
			case count > 0:
				s.logger.Info().Int("count", count).Msg("recovery pass complete")
			}
		}
	}
}
