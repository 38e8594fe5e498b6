package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/request"
	"github.com/zenithlabs/zenith-api/internal/services/rules"
	"github.com/zenithlabs/zenith-api/internal/validation"
	"go.uber.org/zap"
)

// MaxItemNameLength is the maximum length for a purchase item name
const MaxItemNameLength = 200

// WalletHandler handles balance, income, purchases, and history
type WalletHandler struct {
	users        database.UserRepositoryInterface
	transactions database.TransactionRepositoryInterface
	engine       *rules.Engine
	logger       *zap.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(users database.UserRepositoryInterface, transactions database.TransactionRepositoryInterface, engine *rules.Engine, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{users: users, transactions: transactions, engine: engine, logger: logger}
}

// RegisterRoutes registers wallet routes on the given router.
// The router should already have the /api/v1/wallet prefix.
func (h *WalletHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetBalance).Methods("GET")
	r.HandleFunc("/income", h.AddIncome).Methods("POST")
	r.HandleFunc("/purchase", h.Purchase).Methods("POST")
	r.HandleFunc("/history", h.GetHistory).Methods("GET")
}

// IncomeRequest represents an income deposit request
type IncomeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Source string          `json:"source"`
}

// PurchaseRequest represents a purchase attempt
type PurchaseRequest struct {
	ItemName string          `json:"item_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// GetBalance returns the user's current balance
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	balance, err := h.users.GetBalance(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("balance_load_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load balance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// AddIncome credits the balance and records an INCOME ledger entry
func (h *WalletHandler) AddIncome(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req IncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	source := validation.SanitizeText(req.Source)
	if source == "" {
		source = "income"
	}

	newBalance, err := h.engine.AddIncome(r.Context(), user, req.Amount, source)
	if err != nil {
		var validationErr *rules.ValidationError
		if errors.As(err, &validationErr) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", validationErr.Error())
			return
		}
		h.logger.Error("income_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record income")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"balance": newBalance})
}

// Purchase runs a purchase attempt through the rule engine
func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	itemName := validation.SanitizeText(req.ItemName)
	if itemName == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "item_name is required")
		return
	}
	if len(itemName) > MaxItemNameLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "item_name is too long")
		return
	}

	decision, err := h.engine.EvaluatePurchase(r.Context(), user, req.Amount, itemName)
	if err != nil {
		var validationErr *rules.ValidationError
		if errors.As(err, &validationErr) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", validationErr.Error())
			return
		}
		h.logger.Error("purchase_evaluation_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to evaluate purchase")
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// GetHistory lists the user's ledger entries, newest first
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entries, err := h.transactions.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("history_load_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"transactions": entries})
}
