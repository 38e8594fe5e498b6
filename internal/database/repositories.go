package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// UserRepositoryInterface defines the user repository operations used by
// handlers and middleware. The interface enables mock implementations in
// tests.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetBySessionToken(ctx context.Context, token string) (*models.User, error)
	SetSessionToken(ctx context.Context, id uuid.UUID, token *string) error
	SetStressLevel(ctx context.Context, id uuid.UUID, level int) error
	GetSurvey(ctx context.Context, id uuid.UUID) (*models.SurveyProfile, error)
	SetSurvey(ctx context.Context, id uuid.UUID, profile *models.SurveyProfile) error
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

// LedgerStoreInterface defines the atomic balance+ledger operations the
// rule engine evaluates against
type LedgerStoreInterface interface {
	DebitAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName string) (decimal.Decimal, bool, error)
	CreditAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source string) (decimal.Decimal, error)
	LogBlocked(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName, reason string) error
}

// TransactionRepositoryInterface defines read access to the ledger
type TransactionRepositoryInterface interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// StressLogRepositoryInterface defines the stress log operations
type StressLogRepositoryInterface interface {
	Append(ctx context.Context, log *models.StressLog) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StressLog, error)
}

// AssistantRepositoryInterface defines the topic binding cache operations
type AssistantRepositoryInterface interface {
	Get(ctx context.Context, topic models.Topic) (*models.AssistantBinding, error)
	Upsert(ctx context.Context, topic models.Topic, assistantID string) error
	DeleteAll(ctx context.Context) error
}

// ThreadRepositoryInterface defines the (user, topic) thread binding operations
type ThreadRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.ConversationThread, error)
	Upsert(ctx context.Context, userID uuid.UUID, topic models.Topic, threadID string) error
	MarkInitialized(ctx context.Context, userID uuid.UUID, topic models.Topic) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// BriefRepositoryInterface defines the cached brief operations
type BriefRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.Brief, error)
	Upsert(ctx context.Context, brief *models.Brief) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface        = (*UserRepository)(nil)
	_ TransactionRepositoryInterface = (*TransactionRepository)(nil)
	_ StressLogRepositoryInterface   = (*StressLogRepository)(nil)
	_ LedgerStoreInterface           = (*LedgerStore)(nil)
	_ AssistantRepositoryInterface   = (*AssistantRepository)(nil)
	_ ThreadRepositoryInterface      = (*ThreadRepository)(nil)
	_ BriefRepositoryInterface       = (*BriefRepository)(nil)
)
