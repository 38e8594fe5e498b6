package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// AssistantRepository handles the topic to assistant-id bindings. Bindings
// are process-independent: they live in the database so every instance sees
// the same assistant for a topic.
type AssistantRepository struct {
	db *DB
}

// NewAssistantRepository creates a new assistant repository
func NewAssistantRepository(db *DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

// Get retrieves the binding for a topic. Returns nil when no binding exists.
func (r *AssistantRepository) Get(ctx context.Context, topic models.Topic) (*models.AssistantBinding, error) {
	binding := &models.AssistantBinding{}
	query := `SELECT topic, assistant_id, created_at FROM ai_assistants WHERE topic = $1`

	err := r.db.QueryRowContext(ctx, query, topic).Scan(&binding.Topic, &binding.AssistantID, &binding.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assistant binding: %w", err)
	}
	return binding, nil
}

// Upsert stores the binding for a topic. Concurrent creations race
// harmlessly: last write wins.
func (r *AssistantRepository) Upsert(ctx context.Context, topic models.Topic, assistantID string) error {
	query := `
		INSERT INTO ai_assistants (topic, assistant_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (topic) DO UPDATE SET assistant_id = EXCLUDED.assistant_id
	`

	if _, err := r.db.ExecContext(ctx, query, topic, assistantID, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert assistant binding: %w", err)
	}
	return nil
}

// DeleteAll removes every assistant binding, forcing re-creation on the
// next chat call.
func (r *AssistantRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ai_assistants`); err != nil {
		return fmt.Errorf("failed to delete assistant bindings: %w", err)
	}
	return nil
}

// ThreadRepository handles the (user, topic) to thread-id bindings
type ThreadRepository struct {
	db *DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Get retrieves the thread binding for a user and topic. Returns nil when
// no thread exists yet.
func (r *ThreadRepository) Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.ConversationThread, error) {
	thread := &models.ConversationThread{}
	query := `
		SELECT user_id, topic, thread_id, initialized, created_at
		FROM user_threads
		WHERE user_id = $1 AND topic = $2
	`

	err := r.db.QueryRowContext(ctx, query, userID, topic).Scan(
		&thread.UserID, &thread.Topic, &thread.ThreadID, &thread.Initialized, &thread.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread binding: %w", err)
	}
	return thread, nil
}

// Upsert stores a fresh, uninitialized thread binding. Last write wins
// under creation races.
func (r *ThreadRepository) Upsert(ctx context.Context, userID uuid.UUID, topic models.Topic, threadID string) error {
	query := `
		INSERT INTO user_threads (user_id, topic, thread_id, initialized, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (user_id, topic) DO UPDATE SET thread_id = EXCLUDED.thread_id, initialized = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, userID, topic, threadID, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert thread binding: %w", err)
	}
	return nil
}

// MarkInitialized records that the thread has received its one-time context
// priming message.
func (r *ThreadRepository) MarkInitialized(ctx context.Context, userID uuid.UUID, topic models.Topic) error {
	query := `UPDATE user_threads SET initialized = TRUE WHERE user_id = $1 AND topic = $2`

	result, err := r.db.ExecContext(ctx, query, userID, topic)
	if err != nil {
		return fmt.Errorf("failed to mark thread initialized: %w", err)
	}
	return requireRowsAffected(result, "thread")
}

// DeleteByUser removes a single user's thread bindings
func (r *ThreadRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_threads WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete thread bindings: %w", err)
	}
	return nil
}

// DeleteAll removes every thread binding
func (r *ThreadRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_threads`); err != nil {
		return fmt.Errorf("failed to delete thread bindings: %w", err)
	}
	return nil
}

// BriefRepository handles cached proactive briefs
type BriefRepository struct {
	db *DB
}

// NewBriefRepository creates a new brief repository
func NewBriefRepository(db *DB) *BriefRepository {
	return &BriefRepository{db: db}
}

// Get retrieves the cached brief for a user and topic. Returns nil when no
// brief has been generated.
func (r *BriefRepository) Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.Brief, error) {
	brief := &models.Brief{}
	query := `
		SELECT user_id, topic, content, generated_at
		FROM user_briefs
		WHERE user_id = $1 AND topic = $2
	`

	err := r.db.QueryRowContext(ctx, query, userID, topic).Scan(
		&brief.UserID, &brief.Topic, &brief.Content, &brief.GeneratedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brief: %w", err)
	}
	return brief, nil
}

// Upsert overwrites the cached brief for a user and topic
func (r *BriefRepository) Upsert(ctx context.Context, brief *models.Brief) error {
	query := `
		INSERT INTO user_briefs (user_id, topic, content, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, topic) DO UPDATE SET content = EXCLUDED.content, generated_at = EXCLUDED.generated_at
	`

	if _, err := r.db.ExecContext(ctx, query, brief.UserID, brief.Topic, brief.Content, brief.GeneratedAt); err != nil {
		return fmt.Errorf("failed to upsert brief: %w", err)
	}
	return nil
}

// DeleteByUser removes a single user's cached briefs
func (r *BriefRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_briefs WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete briefs: %w", err)
	}
	return nil
}

// DeleteAll removes every cached brief
func (r *BriefRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_briefs`); err != nil {
		return fmt.Errorf("failed to delete briefs: %w", err)
	}
	return nil
}
