package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/services/ai"
	"go.uber.org/zap"
)

// baseRetryDelay is the delay before the first retry of a failed job.
// Each subsequent retry doubles it.
const baseRetryDelay = 30 * time.Second

// BriefRefresher processes queued AI jobs: brief refreshes and session
// resets
type BriefRefresher struct {
	users    database.UserRepositoryInterface
	sessions *ai.SessionCache
	jobQueue queue.JobQueue // for re-enqueueing jobs with delays
	logger   *zap.Logger
}

// NewBriefRefresher creates a new brief refresher
func NewBriefRefresher(
	users database.UserRepositoryInterface,
	sessions *ai.SessionCache,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *BriefRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BriefRefresher{
		users:    users,
		sessions: sessions,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessJob dispatches a queue message by job type and acknowledges it
func (w *BriefRefresher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeBriefRefresh:
		if err := w.processBriefRefresh(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeSessionReset:
		if err := w.processSessionReset(ctx, job); err != nil {
			// Reset failures are not retried: the next chat recreates
			// whatever state the reset missed
			if nackErr := msg.Nack(false); nackErr != nil {
				w.logger.Warn("nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
			}
			return fmt.Errorf("session reset failed: %w", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack reset job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // unknown job type, send to DLQ
			w.logger.Warn("nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// processBriefRefresh regenerates the cached brief for the job's user and
// topic
func (w *BriefRefresher) processBriefRefresh(ctx context.Context, job *queue.Job) error {
	if job.Topic == nil {
		return fmt.Errorf("topic is required for brief refresh job")
	}

	user, err := w.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	profile, err := w.users.GetSurvey(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load survey: %w", err)
	}

	if err := w.sessions.RefreshBrief(ctx, user, *job.Topic, profile); err != nil {
		return fmt.Errorf("failed to refresh brief: %w", err)
	}

	w.logger.Info("brief_refreshed",
		zap.String("user_id", job.UserID.String()),
		zap.String("topic", string(*job.Topic)),
	)
	return nil
}

// processSessionReset drops every cached assistant, thread, and brief
func (w *BriefRefresher) processSessionReset(ctx context.Context, job *queue.Job) error {
	if err := w.sessions.ResetCache(ctx, nil); err != nil {
		return err
	}

	w.logger.Info("sessions_reset",
		zap.String("requested_by", job.UserID.String()),
	)
	return nil
}

// handleJobError retries failed brief refreshes. Remote throttling and
// server errors are re-enqueued with a growing delay; anything else uses
// nack-requeue until the retry budget runs out.
func (w *BriefRefresher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if !job.CanRetry() {
		w.logger.Error("job_failed_permanently",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
			zap.Int("retries", job.RetryCount),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	if isThrottled(err) {
		// Re-enqueue with a delay so the remote gets room to recover
		notBefore := time.Now().Add(retryDelay(job.RetryCount))
		delayed := *job
		delayed.NotBefore = &notBefore
		delayed.RetryCount = job.RetryCount + 1

		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Warn("ack_failed", zap.Error(ackErr), zap.String("job_id", job.ID.String()))
		}
		if enqueueErr := w.jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
			return fmt.Errorf("failed to re-enqueue throttled job: %w", enqueueErr)
		}

		w.logger.Info("job_delayed",
			zap.String("job_id", job.ID.String()),
			zap.Time("not_before", notBefore),
			zap.Int("retry", delayed.RetryCount),
		)
		return nil
	}

	job.IncrementRetry()
	w.logger.Warn("job_failed_will_retry",
		zap.Error(err),
		zap.String("job_id", job.ID.String()),
		zap.Int("attempt", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
	)
	if nackErr := msg.Nack(true); nackErr != nil {
		w.logger.Warn("nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
	}
	return fmt.Errorf("job failed (will retry): %w", err)
}

// isThrottled reports whether the error warrants a delayed retry rather
// than an immediate one
func isThrottled(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var remoteErr *ai.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode == http.StatusTooManyRequests || remoteErr.StatusCode >= 500
	}
	return false
}

func retryDelay(retryCount int) time.Duration {
	return baseRetryDelay << retryCount
}
