package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/request"
	"github.com/zenithlabs/zenith-api/internal/services/auth"
	"github.com/zenithlabs/zenith-api/internal/validation"
	"go.uber.org/zap"
)

// AuthHandler handles registration, login, and logout
type AuthHandler struct {
	users  database.UserRepositoryInterface
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users database.UserRepositoryInterface, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterRoutes registers auth routes on the given router.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// RegisterAuthenticatedRoutes registers auth routes that require a session
func (h *AuthHandler) RegisterAuthenticatedRoutes(r *mux.Router) {
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse carries the issued token and the user it belongs to
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new user account and opens a session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password_hash_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create user")
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     validation.SanitizeText(req.Username),
		Email:        validation.SanitizeText(req.Email),
		PasswordHash: hash,
		Balance:      decimal.Zero,
		StressLevel:  models.MinStressLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx := r.Context()
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Username or email already taken")
			return
		}
		h.logger.Error("user_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create user")
		return
	}

	token, err := h.openSession(r, user)
	if err != nil {
		h.logger.Error("session_open_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to open session")
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{Token: token, User: user})
}

// Login verifies credentials and opens a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Username and password are required")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown user and wrong password
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid username or password")
		return
	}

	token, err := h.openSession(r, user)
	if err != nil {
		h.logger.Error("session_open_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to open session")
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{Token: token, User: user})
}

// Logout clears the stored session token, invalidating it immediately
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if err := h.users.SetSessionToken(r.Context(), user.ID, nil); err != nil {
		h.logger.Error("logout_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to log out")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) openSession(r *http.Request, user *models.User) (string, error) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	if err := h.users.SetSessionToken(r.Context(), user.ID, &token); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	return token, nil
}
