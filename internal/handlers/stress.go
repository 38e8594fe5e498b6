package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/request"
	"github.com/zenithlabs/zenith-api/internal/validation"
	"go.uber.org/zap"
)

// StressHandler records and lists daily stress levels
type StressHandler struct {
	users  database.UserRepositoryInterface
	logs   database.StressLogRepositoryInterface
	logger *zap.Logger
}

// NewStressHandler creates a new stress handler
func NewStressHandler(users database.UserRepositoryInterface, logs database.StressLogRepositoryInterface, logger *zap.Logger) *StressHandler {
	return &StressHandler{users: users, logs: logs, logger: logger}
}

// RegisterRoutes registers stress routes on the given router.
// The router should already have the /api/v1/stress prefix.
func (h *StressHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.LogStress).Methods("POST")
	r.HandleFunc("/history", h.GetHistory).Methods("GET")
}

// StressRequest represents a stress-level report
type StressRequest struct {
	Level int `json:"level" validate:"required,stress_level"`
}

// LogStress stores a stress entry and updates the user's current level
func (h *StressHandler) LogStress(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req StressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "level must be between 1 and 10")
		return
	}

	entry := &models.StressLog{
		ID:       uuid.New(),
		UserID:   user.ID,
		Level:    req.Level,
		LoggedAt: time.Now().UTC(),
	}

	if err := h.logs.Append(r.Context(), entry); err != nil {
		h.logger.Error("stress_log_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record stress level")
		return
	}

	if err := h.users.SetStressLevel(r.Context(), user.ID, req.Level); err != nil {
		h.logger.Error("stress_level_update_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update stress level")
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// GetHistory lists the user's stress entries, newest first
func (h *StressHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entries, err := h.logs.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("stress_history_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load stress history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
