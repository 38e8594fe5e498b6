package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// LedgerStore couples balance mutations with ledger appends so that both
// happen in a single database transaction. A debit without its log entry
// (or vice versa) must never be observable.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new ledger store
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// DebitAndLog atomically debits the user's balance and appends an ALLOWED
// ledger entry. The debit is a conditional decrement: it only applies when
// the resulting balance stays non-negative. When the condition fails (a
// concurrent purchase spent the balance first) ok is false and nothing is
// written; the caller is expected to log the blocked outcome instead.
func (s *LedgerStore) DebitAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName string) (decimal.Decimal, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to begin debit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newBalance decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance - $2, updated_at = $3
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount, time.Now()).Scan(&newBalance)

	if err == sql.ErrNoRows {
		// Lost the race (or never had the funds). No debit, no log here.
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to debit balance: %w", err)
	}

	if err := appendEntryTx(ctx, tx, userID, itemName, amount, models.TransactionAllowed, ""); err != nil {
		return decimal.Zero, false, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to commit debit transaction: %w", err)
	}
	return newBalance, true, nil
}

// CreditAndLog atomically credits the user's balance and appends an INCOME
// ledger entry.
func (s *LedgerStore) CreditAndLog(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source string) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newBalance decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1
		RETURNING balance
	`, userID, amount, time.Now()).Scan(&newBalance)

	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit balance: %w", err)
	}

	if err := appendEntryTx(ctx, tx, userID, source, amount, models.TransactionIncome, ""); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit credit transaction: %w", err)
	}
	return newBalance, nil
}

// LogBlocked appends a BLOCKED ledger entry. Blocked outcomes never touch
// the balance.
func (s *LedgerStore) LogBlocked(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, itemName, reason string) error {
	entry := &models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		ItemName:  itemName,
		Amount:    amount,
		Status:    models.TransactionBlocked,
		Reason:    reason,
		CreatedAt: time.Now(),
	}

	err := s.db.QueryRowContext(ctx, insertTransactionQuery,
		entry.ID, entry.UserID, entry.ItemName, entry.Amount, entry.Status, entry.Reason, entry.CreatedAt,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log blocked transaction: %w", err)
	}
	return nil
}

func appendEntryTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, itemName string, amount decimal.Decimal, status models.TransactionStatus, reason string) error {
	var createdAt time.Time
	err := tx.QueryRowContext(ctx, insertTransactionQuery,
		uuid.New(), userID, itemName, amount, status, reason, time.Now(),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to append %s entry: %w", status, err)
	}
	return nil
}
