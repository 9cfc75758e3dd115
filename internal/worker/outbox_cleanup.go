package worker

import (
	"context"
	"time"

	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/logger"
)

// stuckThreshold is how long a claimed event may sit in processing before it
// is assumed orphaned by a crashed processor and returned to pending.
const stuckThreshold = 15 * time.Minute

// OutboxCleanup periodically removes processed outbox events older than the
// retention window and requeues events stuck in processing. Failed events
// are kept for inspection.
type OutboxCleanup struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewOutboxCleanup(repo repository.OutboxRepository, retention time.Duration, logger *logger.Logger) *OutboxCleanup {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &OutboxCleanup{
		repo:      repo,
		retention: retention,
		interval:  time.Hour,
		logger:    logger,
	}
}

func (c *OutboxCleanup) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requeued, err := c.repo.RequeueStuck(ctx, time.Now().Add(-stuckThreshold))
			if err != nil {
				c.logger.Error(err, "failed to requeue stuck outbox events")
			} else if requeued > 0 {
				c.logger.Warn("requeued stuck outbox events", "requeued", requeued)
			}

			deleted, err := c.repo.DeleteProcessedBefore(ctx, time.Now().Add(-c.retention))
			if err != nil {
				c.logger.Error(err, "failed to clean up outbox")
				continue
			}
			if deleted > 0 {
				c.logger.Info("cleaned up processed outbox events", "deleted", deleted)
			}
		}
	}
}
