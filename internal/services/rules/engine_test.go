package rules

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// fakeLedger is an in-memory LedgerStoreInterface. The conditional debit is
// applied under a mutex so concurrency tests exercise the same
// compare-and-update guarantee the database gives.
type fakeLedger struct {
	mu      sync.Mutex
	balance decimal.Decimal
	entries []*models.Transaction

	debitErr  error
	creditErr error
	logErr    error
}

func newFakeLedger(balance int64) *fakeLedger {
	return &fakeLedger{balance: decimal.NewFromInt(balance)}
}

func (f *fakeLedger) DebitAndLog(_ context.Context, userID uuid.UUID, amount decimal.Decimal, itemName string) (decimal.Decimal, bool, error) {
	if f.debitErr != nil {
		return decimal.Zero, false, f.debitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance.LessThan(amount) {
		return decimal.Zero, false, nil
	}
	f.balance = f.balance.Sub(amount)
	f.entries = append(f.entries, &models.Transaction{
		UserID:   userID,
		ItemName: itemName,
		Amount:   amount,
		Status:   models.TransactionAllowed,
	})
	return f.balance, true, nil
}

func (f *fakeLedger) CreditAndLog(_ context.Context, userID uuid.UUID, amount decimal.Decimal, source string) (decimal.Decimal, error) {
	if f.creditErr != nil {
		return decimal.Zero, f.creditErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = f.balance.Add(amount)
	f.entries = append(f.entries, &models.Transaction{
		UserID:   userID,
		ItemName: source,
		Amount:   amount,
		Status:   models.TransactionIncome,
	})
	return f.balance, nil
}

func (f *fakeLedger) LogBlocked(_ context.Context, userID uuid.UUID, amount decimal.Decimal, itemName, reason string) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, &models.Transaction{
		UserID:   userID,
		ItemName: itemName,
		Amount:   amount,
		Status:   models.TransactionBlocked,
		Reason:   reason,
	})
	return nil
}

func (f *fakeLedger) countByStatus(status models.TransactionStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

func testUser(balance int64, stress int) *models.User {
	return &models.User{
		ID:          uuid.New(),
		Username:    "tester",
		Balance:     decimal.NewFromInt(balance),
		StressLevel: stress,
	}
}

func TestEvaluatePurchase_RuleOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		balance     int64
		stress      int
		amount      int64
		wantStatus  models.TransactionStatus
		wantReason  string
		wantBalance int64
	}{
		{
			// Stress rule is checked before affordability, so even a
			// comfortably affordable purchase reports the stress reason.
			name:       "stress rule wins over affordability",
			balance:    1000,
			stress:     8,
			amount:     51,
			wantStatus: models.TransactionBlocked,
			wantReason: ReasonStressBlock,
		},
		{
			name:       "insufficient funds",
			balance:    100,
			stress:     2,
			amount:     500,
			wantStatus: models.TransactionBlocked,
			wantReason: ReasonInsufficientFunds,
		},
		{
			name:        "allowed purchase debits balance",
			balance:     100,
			stress:      2,
			amount:      50,
			wantStatus:  models.TransactionAllowed,
			wantBalance: 50,
		},
		{
			// The stress rule only applies above 50, strictly.
			name:        "amount of exactly 50 passes the stress rule",
			balance:     100,
			stress:      9,
			amount:      50,
			wantStatus:  models.TransactionAllowed,
			wantBalance: 50,
		},
		{
			// Stress of exactly 7 is below the ceiling.
			name:        "stress of exactly 7 passes the stress rule",
			balance:     1000,
			stress:      7,
			amount:      200,
			wantStatus:  models.TransactionAllowed,
			wantBalance: 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := newFakeLedger(tt.balance)
			engine := NewEngine(ledger, nil)
			user := testUser(tt.balance, tt.stress)

			decision, err := engine.EvaluatePurchase(context.Background(), user, decimal.NewFromInt(tt.amount), "gadget")
			if err != nil {
				t.Fatalf("EvaluatePurchase returned error: %v", err)
			}

			if decision.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", decision.Status, tt.wantStatus)
			}
			if decision.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", decision.Reason, tt.wantReason)
			}

			if len(ledger.entries) != 1 {
				t.Fatalf("ledger entries = %d, want exactly 1", len(ledger.entries))
			}
			if ledger.entries[0].Status != tt.wantStatus {
				t.Errorf("logged status = %s, want %s", ledger.entries[0].Status, tt.wantStatus)
			}

			if tt.wantStatus == models.TransactionAllowed {
				if decision.NewBalance == nil {
					t.Fatal("allowed decision has no new balance")
				}
				if !decision.NewBalance.Equal(decimal.NewFromInt(tt.wantBalance)) {
					t.Errorf("new balance = %s, want %d", decision.NewBalance, tt.wantBalance)
				}
			} else {
				if decision.NewBalance != nil {
					t.Errorf("blocked decision carries a new balance: %s", decision.NewBalance)
				}
				if !ledger.balance.Equal(decimal.NewFromInt(tt.balance)) {
					t.Errorf("blocked purchase changed balance: %s", ledger.balance)
				}
			}
		})
	}
}

func TestEvaluatePurchase_InvalidAmount(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(100)
	engine := NewEngine(ledger, nil)
	user := testUser(100, 2)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := engine.EvaluatePurchase(context.Background(), user, amount, "gadget")
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("amount %s: error = %v, want ValidationError", amount, err)
		}
	}

	// Validation failures must not reach the ledger.
	if len(ledger.entries) != 0 {
		t.Errorf("validation errors wrote %d ledger entries", len(ledger.entries))
	}
}

func TestEvaluatePurchase_ConcurrentDoubleSpend(t *testing.T) {
	t.Parallel()

	// Two concurrent purchases of 60 against a balance of 100: exactly one
	// may win.
	ledger := newFakeLedger(100)
	engine := NewEngine(ledger, nil)
	user := testUser(100, 2)
	amount := decimal.NewFromInt(60)

	var wg sync.WaitGroup
	decisions := make([]*models.TransactionStatus, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := engine.EvaluatePurchase(context.Background(), user, amount, "gadget")
			if err != nil {
				t.Errorf("EvaluatePurchase returned error: %v", err)
				return
			}
			decisions[i] = &decision.Status
		}(i)
	}
	wg.Wait()

	if allowed := ledger.countByStatus(models.TransactionAllowed); allowed != 1 {
		t.Errorf("ALLOWED entries = %d, want exactly 1", allowed)
	}
	if blocked := ledger.countByStatus(models.TransactionBlocked); blocked != 1 {
		t.Errorf("BLOCKED entries = %d, want exactly 1", blocked)
	}
	if !ledger.balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("final balance = %s, want 40", ledger.balance)
	}
}

func TestAddIncome(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(100)
	engine := NewEngine(ledger, nil)
	user := testUser(100, 9)

	// Income is credited unconditionally, stress level does not matter.
	newBalance, err := engine.AddIncome(context.Background(), user, decimal.NewFromInt(250), "salary")
	if err != nil {
		t.Fatalf("AddIncome returned error: %v", err)
	}
	if !newBalance.Equal(decimal.NewFromInt(350)) {
		t.Errorf("new balance = %s, want 350", newBalance)
	}
	if n := ledger.countByStatus(models.TransactionIncome); n != 1 {
		t.Errorf("INCOME entries = %d, want 1", n)
	}

	_, err = engine.AddIncome(context.Background(), user, decimal.Zero, "salary")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("zero income: error = %v, want ValidationError", err)
	}
}

func TestLedgerConservation(t *testing.T) {
	t.Parallel()

	// After any sequence of attempts, balance = initial - sum(ALLOWED) +
	// sum(INCOME); BLOCKED contributes nothing.
	ledger := newFakeLedger(200)
	engine := NewEngine(ledger, nil)
	user := testUser(200, 2)

	ctx := context.Background()
	steps := []struct {
		amount int64
		income bool
		stress int
	}{
		{amount: 80, stress: 2},           // allowed, balance 120
		{amount: 500, stress: 2},          // blocked, insufficient
		{amount: 300, income: true},       // income, balance 420
		{amount: 60, stress: 9},           // blocked, stress rule
		{amount: 20, stress: 9},           // allowed (under impulse threshold), balance 400
	}

	for _, step := range steps {
		user.StressLevel = step.stress
		user.Balance = ledger.balance
		if step.income {
			if _, err := engine.AddIncome(ctx, user, decimal.NewFromInt(step.amount), "gig"); err != nil {
				t.Fatalf("AddIncome: %v", err)
			}
			continue
		}
		if _, err := engine.EvaluatePurchase(ctx, user, decimal.NewFromInt(step.amount), "item"); err != nil {
			t.Fatalf("EvaluatePurchase: %v", err)
		}
	}

	expected := decimal.NewFromInt(200)
	for _, e := range ledger.entries {
		switch e.Status {
		case models.TransactionAllowed:
			expected = expected.Sub(e.Amount)
		case models.TransactionIncome:
			expected = expected.Add(e.Amount)
		}
	}
	if !ledger.balance.Equal(expected) {
		t.Errorf("balance = %s, ledger replay gives %s", ledger.balance, expected)
	}
	if !ledger.balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("balance = %s, want 400", ledger.balance)
	}
}

func TestEvaluatePurchase_StorageFailure(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(100)
	ledger.debitErr = errors.New("connection reset")
	engine := NewEngine(ledger, nil)
	user := testUser(100, 2)

	_, err := engine.EvaluatePurchase(context.Background(), user, decimal.NewFromInt(10), "gadget")
	if err == nil {
		t.Fatal("expected storage error to propagate")
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		t.Error("storage failure misclassified as validation error")
	}
	if len(ledger.entries) != 0 {
		t.Errorf("failed evaluation left %d ledger entries", len(ledger.entries))
	}
}
