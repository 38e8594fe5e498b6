package rules

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"go.uber.org/zap"
)

// Block reasons are part of the API contract: the frontend matches on them.
const (
	// ReasonStressBlock is returned when a large purchase coincides with
	// high reported stress
	ReasonStressBlock = "High stress impulse buy detected."
	// ReasonInsufficientFunds is returned when the balance cannot cover
	// the purchase
	ReasonInsufficientFunds = "Insufficient funds."
)

const stressLevelCeiling = 7

// impulseAmountThreshold is the purchase size above which the stress rule
// applies
var impulseAmountThreshold = decimal.NewFromInt(50)

// ValidationError reports a rejected input. It is a client error, distinct
// from a BLOCKED decision: nothing is logged to the ledger.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Decision is the outcome of a purchase evaluation
type Decision struct {
	Status     models.TransactionStatus `json:"status"`
	Reason     string                   `json:"reason,omitempty"`
	NewBalance *decimal.Decimal         `json:"new_balance,omitempty"`
}

// Engine evaluates purchase attempts against the user's balance and stress
// level. Rules run in a fixed order; the first match decides the outcome and
// its reason text. Every evaluation appends exactly one ledger entry, and
// any balance debit is atomic with that entry.
type Engine struct {
	ledger database.LedgerStoreInterface
	logger *zap.Logger
}

// NewEngine creates a new rule engine
func NewEngine(ledger database.LedgerStoreInterface, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{ledger: ledger, logger: logger}
}

// EvaluatePurchase runs the rule chain for a purchase attempt.
//
// Rule order matters for the observable reason text:
//  1. stress rule: stress_level > 7 and amount > 50 blocks the purchase
//  2. affordability: balance < amount blocks the purchase
//  3. otherwise the purchase is allowed and the balance debited
//
// The debit is a conditional decrement, so two concurrent purchases can
// never both spend the same funds; the loser is converted to a blocked
// insufficient-funds outcome.
func (e *Engine) EvaluatePurchase(ctx context.Context, user *models.User, amount decimal.Decimal, itemName string) (*Decision, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be a positive number"}
	}

	if user.StressLevel > stressLevelCeiling && amount.GreaterThan(impulseAmountThreshold) {
		return e.block(ctx, user, amount, itemName, ReasonStressBlock)
	}

	if user.Balance.LessThan(amount) {
		return e.block(ctx, user, amount, itemName, ReasonInsufficientFunds)
	}

	newBalance, ok, err := e.ledger.DebitAndLog(ctx, user.ID, amount, itemName)
	if err != nil {
		return nil, fmt.Errorf("failed to apply purchase: %w", err)
	}
	if !ok {
		// A concurrent purchase drained the balance between the read
		// and the conditional decrement.
		return e.block(ctx, user, amount, itemName, ReasonInsufficientFunds)
	}

	e.logger.Info("purchase_allowed",
		zap.String("user_id", user.ID.String()),
		zap.String("item", itemName),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()),
	)

	return &Decision{
		Status:     models.TransactionAllowed,
		NewBalance: &newBalance,
	}, nil
}

// AddIncome credits the balance and appends an INCOME ledger entry
// unconditionally.
func (e *Engine) AddIncome(ctx context.Context, user *models.User, amount decimal.Decimal, source string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must be a positive number"}
	}

	newBalance, err := e.ledger.CreditAndLog(ctx, user.ID, amount, source)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add income: %w", err)
	}

	e.logger.Info("income_added",
		zap.String("user_id", user.ID.String()),
		zap.String("source", source),
		zap.String("amount", amount.String()),
	)

	return newBalance, nil
}

func (e *Engine) block(ctx context.Context, user *models.User, amount decimal.Decimal, itemName, reason string) (*Decision, error) {
	if err := e.ledger.LogBlocked(ctx, user.ID, amount, itemName, reason); err != nil {
		return nil, fmt.Errorf("failed to log blocked purchase: %w", err)
	}

	e.logger.Info("purchase_blocked",
		zap.String("user_id", user.ID.String()),
		zap.String("item", itemName),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)

	return &Decision{Status: models.TransactionBlocked, Reason: reason}, nil
}
