package models

import (
	"time"

	"github.com/google/uuid"
)

// AssistantBinding maps a topic to a remote assistant identifier. A binding
// is created at most once per topic and shared by all users until an
// explicit cache reset removes it.
type AssistantBinding struct {
	Topic       Topic     `json:"topic"`
	AssistantID string    `json:"assistant_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationThread maps (user, topic) to a remote thread identifier. The
// Initialized flag transitions false to true exactly once, after the thread
// has been primed with the user's survey context.
type ConversationThread struct {
	UserID      uuid.UUID `json:"user_id"`
	Topic       Topic     `json:"topic"`
	ThreadID    string    `json:"thread_id"`
	Initialized bool      `json:"initialized"`
	CreatedAt   time.Time `json:"created_at"`
}

// Brief is a proactively generated summary for a user and topic. It is
// overwritten on each regeneration and served from cache while fresh.
type Brief struct {
	UserID      uuid.UUID `json:"user_id"`
	Topic       Topic     `json:"topic"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}
