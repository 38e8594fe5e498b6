package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"go.uber.org/zap"
)

// ErrNoThread is returned when no conversation thread could be established.
// Chat endpoints swallow it and serve the fallback text; the structured
// purchase-advice flow surfaces it to the caller.
var ErrNoThread = errors.New("no conversation thread available")

// SessionCache maps topics to remote assistants and (user, topic) pairs to
// remote threads, creating both lazily and priming each new thread once
// with the user's survey context. All remote calls run on a bounded pool
// with a fixed timeout.
//
// Binding creation races are tolerated: two requests may both create a
// remote object, the last upsert wins, and either id is valid.
type SessionCache struct {
	client     RemoteClient
	assistants database.AssistantRepositoryInterface
	threads    database.ThreadRepositoryInterface
	briefs     database.BriefRepositoryInterface
	pool       *callPool
	logger     *zap.Logger
	briefTTL   time.Duration
}

// Option configures a SessionCache
type Option func(*SessionCache)

// WithCallLimits overrides the pool size and per-call timeout
func WithCallLimits(size int64, timeout time.Duration) Option {
	return func(s *SessionCache) {
		s.pool = newCallPool(size, timeout)
	}
}

// WithBriefTTL overrides how long a cached brief is served before it is
// regenerated
func WithBriefTTL(ttl time.Duration) Option {
	return func(s *SessionCache) {
		s.briefTTL = ttl
	}
}

// NewSessionCache creates a session cache over the given remote client and
// binding repositories.
func NewSessionCache(
	client RemoteClient,
	assistants database.AssistantRepositoryInterface,
	threads database.ThreadRepositoryInterface,
	briefs database.BriefRepositoryInterface,
	logger *zap.Logger,
	opts ...Option,
) *SessionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SessionCache{
		client:     client,
		assistants: assistants,
		threads:    threads,
		briefs:     briefs,
		pool:       newCallPool(DefaultPoolSize, DefaultCallTimeout),
		logger:     logger,
		briefTTL:   DefaultBriefTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat sends a message on the user's thread for a topic and returns the
// reply as plain prose. The returned string is always user-safe: remote
// failures produce fallback text instead of an error. The error is non-nil
// only when no thread could be established, for callers that must
// distinguish that case.
func (s *SessionCache) Chat(ctx context.Context, user *models.User, topic models.Topic, message string, profile *models.SurveyProfile) (string, error) {
	threadID, initialized, err := s.resolveThread(ctx, user.ID, topic)
	if err != nil {
		s.logger.Warn("thread_unavailable",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
		return FallbackUnavailable, fmt.Errorf("%w: %w", ErrNoThread, err)
	}

	if !initialized {
		s.primeThread(ctx, user, topic, threadID, profile)
	}

	reply, err := s.send(ctx, threadID, message)
	if err != nil {
		s.logger.Warn("chat_send_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
		return FallbackText(err), nil
	}

	return StripMarkdown(reply), nil
}

// ResetCache deletes cached bindings, forcing re-creation on the next chat
// call. A nil userID resets globally (assistants, threads, and briefs); a
// non-nil userID resets only that user's threads and briefs.
func (s *SessionCache) ResetCache(ctx context.Context, userID *uuid.UUID) error {
	if userID != nil {
		if err := s.threads.DeleteByUser(ctx, *userID); err != nil {
			return err
		}
		return s.briefs.DeleteByUser(ctx, *userID)
	}

	if err := s.assistants.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.threads.DeleteAll(ctx); err != nil {
		return err
	}
	return s.briefs.DeleteAll(ctx)
}

// resolveAssistant returns the topic's assistant id, creating and caching
// the remote assistant on first use.
func (s *SessionCache) resolveAssistant(ctx context.Context, topic models.Topic) (string, error) {
	binding, err := s.assistants.Get(ctx, topic)
	if err != nil {
		return "", err
	}
	if binding != nil {
		return binding.AssistantID, nil
	}

	assistantID, err := s.pool.run(ctx, func(callCtx context.Context) (string, error) {
		return s.client.CreateAssistant(callCtx, AssistantName(topic), SystemPrompt(topic))
	})
	if err != nil {
		return "", err
	}

	// A lost upsert race just means another request registered its own
	// assistant; either id works.
	if err := s.assistants.Upsert(ctx, topic, assistantID); err != nil {
		s.logger.Warn("assistant_binding_store_failed",
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
	}

	s.logger.Info("assistant_created",
		zap.String("topic", string(topic)),
		zap.String("assistant_id", assistantID),
	)
	return assistantID, nil
}

// resolveThread returns the user's thread id for a topic plus whether it
// has already been primed, creating the remote thread on first use.
func (s *SessionCache) resolveThread(ctx context.Context, userID uuid.UUID, topic models.Topic) (string, bool, error) {
	thread, err := s.threads.Get(ctx, userID, topic)
	if err != nil {
		return "", false, err
	}
	if thread != nil {
		return thread.ThreadID, thread.Initialized, nil
	}

	assistantID, err := s.resolveAssistant(ctx, topic)
	if err != nil {
		return "", false, err
	}

	threadID, err := s.pool.run(ctx, func(callCtx context.Context) (string, error) {
		return s.client.CreateThread(callCtx, assistantID)
	})
	if err != nil {
		return "", false, err
	}

	if err := s.threads.Upsert(ctx, userID, topic, threadID); err != nil {
		s.logger.Warn("thread_binding_store_failed",
			zap.String("user_id", userID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
	}

	return threadID, false, nil
}

// primeThread sends the one-time survey context message and marks the
// thread initialized. A priming failure leaves the flag unset so the next
// chat retries; the user's message still goes through this call.
func (s *SessionCache) primeThread(ctx context.Context, user *models.User, topic models.Topic, threadID string, profile *models.SurveyProfile) {
	contextMsg := BuildContextMessage(topic, profile, user)
	if contextMsg == "" {
		return
	}

	if _, err := s.send(ctx, threadID, PrimingMessage(contextMsg)); err != nil {
		s.logger.Warn("thread_priming_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
		return
	}

	if err := s.threads.MarkInitialized(ctx, user.ID, topic); err != nil {
		s.logger.Warn("thread_initialized_flag_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
	}
}

func (s *SessionCache) send(ctx context.Context, threadID, content string) (string, error) {
	return s.pool.run(ctx, func(callCtx context.Context) (string, error) {
		return s.client.SendMessage(callCtx, threadID, content)
	})
}
