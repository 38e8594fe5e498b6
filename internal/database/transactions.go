package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// TransactionRepository handles ledger database operations. The ledger is
// append-only: entries are never updated or deleted.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const insertTransactionQuery = `
	INSERT INTO transactions (id, user_id, item_name, amount, status, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
`

// Append inserts a new ledger entry
func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) error {
	err := r.db.QueryRowContext(ctx, insertTransactionQuery,
		tx.ID,
		tx.UserID,
		tx.ItemName,
		tx.Amount,
		tx.Status,
		tx.Reason,
		tx.CreatedAt,
	).Scan(&tx.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's ledger entries, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, item_name, amount, status, reason, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var transactions []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.ItemName, &tx.Amount, &tx.Status, &tx.Reason, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}
