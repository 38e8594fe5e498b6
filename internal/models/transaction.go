package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the outcome recorded on a ledger entry
type TransactionStatus string

const (
	// TransactionAllowed marks a purchase that debited the balance
	TransactionAllowed TransactionStatus = "ALLOWED"
	// TransactionBlocked marks a purchase rejected by the rule engine
	TransactionBlocked TransactionStatus = "BLOCKED"
	// TransactionIncome marks a balance credit
	TransactionIncome TransactionStatus = "INCOME"
)

// Valid reports whether the status is a known ledger status
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionAllowed, TransactionBlocked, TransactionIncome:
		return true
	default:
		return false
	}
}

// Transaction is an immutable ledger entry. Entries are appended once per
// purchase or income event and never mutated or deleted.
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	ItemName  string            `json:"item_name"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
