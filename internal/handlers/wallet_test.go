package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/services/rules"
	"go.uber.org/zap"
)

func newWalletTestUser(balance int64, stress int) *models.User {
	return &models.User{
		ID:          uuid.New(),
		Username:    "jordan",
		Email:       "jordan@example.com",
		Balance:     decimal.NewFromInt(balance),
		StressLevel: stress,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestWalletHandler_GetBalance(t *testing.T) {
	t.Parallel()

	user := newWalletTestUser(120, 3)
	users := newFakeUserRepo()
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	ledger := &fakeLedger{balance: user.Balance}
	handler := NewWalletHandler(users, &fakeTransactionRepo{}, rules.NewEngine(ledger, zap.NewNop()), zap.NewNop())

	req := withUser(httptest.NewRequest("GET", "/api/v1/wallet", nil), user)
	rec := httptest.NewRecorder()
	handler.GetBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	if got := data["balance"].(string); got != "120" {
		t.Errorf("balance = %q, want %q", got, "120")
	}
}

func TestWalletHandler_GetBalance_NoUser(t *testing.T) {
	t.Parallel()

	handler := NewWalletHandler(newFakeUserRepo(), &fakeTransactionRepo{}, rules.NewEngine(&fakeLedger{}, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.GetBalance(rec, httptest.NewRequest("GET", "/api/v1/wallet", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestWalletHandler_AddIncome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantNew    string
	}{
		{
			name:       "valid deposit",
			body:       `{"amount": "50", "source": "allowance"}`,
			wantStatus: http.StatusOK,
			wantNew:    "150",
		},
		{
			name:       "zero amount rejected",
			body:       `{"amount": "0", "source": "allowance"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative amount rejected",
			body:       `{"amount": "-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"amount": `,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newWalletTestUser(100, 3)
			users := newFakeUserRepo()
			if err := users.Create(context.Background(), user); err != nil {
				t.Fatalf("seed user: %v", err)
			}

			ledger := &fakeLedger{balance: user.Balance}
			handler := NewWalletHandler(users, &fakeTransactionRepo{}, rules.NewEngine(ledger, zap.NewNop()), zap.NewNop())

			req := withUser(httptest.NewRequest("POST", "/api/v1/wallet/income", bytes.NewBufferString(tt.body)), user)
			rec := httptest.NewRecorder()
			handler.AddIncome(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			data := body["data"].(map[string]any)
			if got := data["balance"].(string); got != tt.wantNew {
				t.Errorf("balance = %q, want %q", got, tt.wantNew)
			}
		})
	}
}

func TestWalletHandler_Purchase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		balance    int64
		stress     int
		body       string
		wantStatus int
		wantResult models.TransactionStatus
		wantReason string
	}{
		{
			name:       "affordable purchase allowed",
			balance:    100,
			stress:     3,
			body:       `{"item_name": "book", "amount": "30"}`,
			wantStatus: http.StatusOK,
			wantResult: models.TransactionAllowed,
		},
		{
			name:       "high stress large purchase blocked",
			balance:    1000,
			stress:     9,
			body:       `{"item_name": "gadget", "amount": "80"}`,
			wantStatus: http.StatusOK,
			wantResult: models.TransactionBlocked,
			wantReason: rules.ReasonStressBlock,
		},
		{
			name:       "insufficient funds blocked",
			balance:    10,
			stress:     3,
			body:       `{"item_name": "console", "amount": "400"}`,
			wantStatus: http.StatusOK,
			wantResult: models.TransactionBlocked,
			wantReason: rules.ReasonInsufficientFunds,
		},
		{
			name:       "non-positive amount rejected",
			balance:    100,
			stress:     3,
			body:       `{"item_name": "book", "amount": "-5"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing item name rejected",
			balance:    100,
			stress:     3,
			body:       `{"amount": "5"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newWalletTestUser(tt.balance, tt.stress)
			users := newFakeUserRepo()
			if err := users.Create(context.Background(), user); err != nil {
				t.Fatalf("seed user: %v", err)
			}

			ledger := &fakeLedger{balance: user.Balance}
			handler := NewWalletHandler(users, &fakeTransactionRepo{}, rules.NewEngine(ledger, zap.NewNop()), zap.NewNop())

			req := withUser(httptest.NewRequest("POST", "/api/v1/wallet/purchase", bytes.NewBufferString(tt.body)), user)
			rec := httptest.NewRecorder()
			handler.Purchase(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			data := body["data"].(map[string]any)
			if got := data["status"].(string); got != string(tt.wantResult) {
				t.Errorf("decision status = %q, want %q", got, tt.wantResult)
			}
			if tt.wantReason != "" {
				if got, _ := data["reason"].(string); got != tt.wantReason {
					t.Errorf("reason = %q, want %q", got, tt.wantReason)
				}
			}
			if tt.wantResult == models.TransactionBlocked {
				if len(ledger.entries) != 1 || ledger.entries[0].Status != models.TransactionBlocked {
					t.Error("expected a single BLOCKED ledger entry")
				}
			}
		})
	}
}

func TestWalletHandler_GetHistory(t *testing.T) {
	t.Parallel()

	user := newWalletTestUser(100, 3)
	users := newFakeUserRepo()
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	history := &fakeTransactionRepo{entries: []*models.Transaction{
		{ID: uuid.New(), UserID: user.ID, ItemName: "book", Amount: decimal.NewFromInt(30), Status: models.TransactionAllowed},
		{ID: uuid.New(), UserID: user.ID, ItemName: "allowance", Amount: decimal.NewFromInt(50), Status: models.TransactionIncome},
	}}
	handler := NewWalletHandler(users, history, rules.NewEngine(&fakeLedger{}, zap.NewNop()), zap.NewNop())

	req := withUser(httptest.NewRequest("GET", "/api/v1/wallet/history", nil), user)
	rec := httptest.NewRecorder()
	handler.GetHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	entries := data["transactions"].([]any)
	if len(entries) != 2 {
		t.Fatalf("got %d transactions, want 2", len(entries))
	}
	first := entries[0].(map[string]any)
	if first["item_name"] != "book" {
		t.Errorf("first item = %v, want book", first["item_name"])
	}
}
