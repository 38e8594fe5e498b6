package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/request"
)

// fakeUserRepo is an in-memory UserRepositoryInterface for handler tests
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	surveys map[uuid.UUID]*models.SurveyProfile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return database.ErrDuplicateUser
		}
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) GetBySessionToken(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.SessionToken != nil && *u.SessionToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) SetSessionToken(ctx context.Context, id uuid.UUID, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.SessionToken = token
	return nil
}

func (f *fakeUserRepo) SetStressLevel(ctx context.Context, id uuid.UUID, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.StressLevel = level
	return nil
}

func (f *fakeUserRepo) GetSurvey(ctx context.Context, id uuid.UUID) (*models.SurveyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.surveys[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) SetSurvey(ctx context.Context, id uuid.UUID, profile *models.SurveyProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.surveys == nil {
		f.surveys = make(map[uuid.UUID]*models.SurveyProfile)
	}
	f.surveys[id] = profile
	if u, ok := f.users[id]; ok {
		u.SurveyCompleted = true
	}
	return nil
}

func (f *fakeUserRepo) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("user not found")
	}
	return u.Balance, nil
}

// fakeLedger implements LedgerStoreInterface over an in-memory balance
type fakeLedger struct {
	mu      sync.Mutex
	balance decimal.Decimal
	entries []*models.Transaction
}

func (f *fakeLedger) DebitAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance.LessThan(amount) {
		return f.balance, false, nil
	}
	f.balance = f.balance.Sub(amount)
	f.entries = append(f.entries, &models.Transaction{
		ID: uuid.New(), UserID: userID, ItemName: itemName,
		Amount: amount, Status: models.TransactionAllowed, CreatedAt: time.Now().UTC(),
	})
	return f.balance, true, nil
}

func (f *fakeLedger) CreditAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = f.balance.Add(amount)
	f.entries = append(f.entries, &models.Transaction{
		ID: uuid.New(), UserID: userID, ItemName: source,
		Amount: amount, Status: models.TransactionIncome, CreatedAt: time.Now().UTC(),
	})
	return f.balance, nil
}

func (f *fakeLedger) LogBlocked(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, &models.Transaction{
		ID: uuid.New(), UserID: userID, ItemName: itemName,
		Amount: amount, Status: models.TransactionBlocked, Reason: reason, CreatedAt: time.Now().UTC(),
	})
	return nil
}

// fakeTransactionRepo serves canned history entries
type fakeTransactionRepo struct {
	entries []*models.Transaction
	err     error
}

func (f *fakeTransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// fakeStressLogRepo records appended entries
type fakeStressLogRepo struct {
	mu      sync.Mutex
	entries []*models.StressLog
}

func (f *fakeStressLogRepo) Append(ctx context.Context, log *models.StressLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeStressLogRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StressLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

// fakeJobQueue records enqueued jobs
type fakeJobQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (f *fakeJobQueue) Close() error { return nil }

func (f *fakeJobQueue) HealthCheck(ctx context.Context) error { return nil }

// withUser injects a user into the request context, standing in for the
// auth middleware
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(request.WithUser(r.Context(), user))
}
