package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DLQPurger removes dead-lettered messages older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

const purgeTimeout = 2 * time.Minute

// GarbageCollector runs periodic DLQ purges, removing messages older than retention.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a new garbage collector. purger is used to purge DLQ messages
// older than retention; pass a RabbitMQ queue (implements DLQPurger) or another implementation.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start runs the GC loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.log.Error("dlq_gc_failed", zap.Error(err))
			}
		}
	}
}

// collect purges DLQ messages older than retention.
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.log.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
