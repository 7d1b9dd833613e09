package worker

import (
	"context"
	"time"

	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

// RetentionWorker prunes rows that only matter for a bounded window: old
// audit logs and already-delivered outbox events.
type RetentionWorker struct {
	audits        repository.AuditRepository
	outbox        repository.OutboxRepository
	retentionDays int
	interval      time.Duration
	log           *logger.Logger
}

func NewRetentionWorker(
	audits repository.AuditRepository,
	outbox repository.OutboxRepository,
	retentionDays int,
	interval time.Duration,
	log *logger.Logger,
) *RetentionWorker {
	return &RetentionWorker{
		audits:        audits,
		outbox:        outbox,
		retentionDays: retentionDays,
		interval:      interval,
		log:           log,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

func (w *RetentionWorker) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	if rows, err := w.audits.DeleteBefore(ctx, cutoff); err != nil {
		w.log.Error(err, "failed to prune audit logs")
	} else if rows > 0 {
		w.log.Info("pruned audit logs", "rows", rows)
	}

	if rows, err := w.outbox.DeleteProcessedBefore(ctx, cutoff); err != nil {
		w.log.Error(err, "failed to prune processed outbox events")
	} else if rows > 0 {
		w.log.Info("pruned processed outbox events", "rows", rows)
	}
}
