package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/request"
	"github.com/zenithlabs/zenith-api/internal/services/ai"
	"github.com/zenithlabs/zenith-api/internal/validation"
	"go.uber.org/zap"
)

// MaxChatMessageLength is the maximum length for a chat message
const MaxChatMessageLength = 4000

// ChatHandler exposes the assistant conversation endpoints
type ChatHandler struct {
	users    database.UserRepositoryInterface
	sessions *ai.SessionCache
	jobs     queue.JobQueue
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(users database.UserRepositoryInterface, sessions *ai.SessionCache, jobs queue.JobQueue, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{users: users, sessions: sessions, jobs: jobs, logger: logger}
}

// RegisterRoutes registers AI routes on the given router.
// The router should already have the /api/v1/ai prefix.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.Chat).Methods("POST")
	r.HandleFunc("/brief", h.Brief).Methods("POST")
	r.HandleFunc("/reset", h.Reset).Methods("POST")
}

// ChatRequest represents a chat message to one of the assistants
type ChatRequest struct {
	Topic   models.Topic `json:"topic" validate:"required,topic"`
	Message string       `json:"message" validate:"required"`
}

// BriefRequest represents a proactive-brief request
type BriefRequest struct {
	Topic models.Topic `json:"topic" validate:"required,topic"`
	Force bool         `json:"force"`
}

// ResetRequest represents a session-cache reset request
type ResetRequest struct {
	Global bool `json:"global"`
}

// Chat relays a message to the topic assistant and returns its reply
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "topic must be one of 'guardian', 'scholar', 'vitals' and message is required")
		return
	}

	message := validation.SanitizeText(req.Message)
	if message == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "message is required")
		return
	}
	if len(message) > MaxChatMessageLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "message is too long")
		return
	}

	// Redact emails and full names before anything leaves the server.
	message = ai.RedactPII(message)

	profile, err := h.users.GetSurvey(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("survey_load_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	reply, err := h.sessions.Chat(r.Context(), user, req.Topic, message, profile)
	if err != nil {
		// Thread establishment failed; Chat already returned fallback text.
		h.logger.Warn("chat_degraded",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(req.Topic)),
			zap.Error(err))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"topic":    req.Topic,
		"reply":    reply,
		"degraded": err != nil,
	})
}

// Brief returns the cached proactive summary for a topic, generating it
// when missing, stale, or forced
func (h *ChatHandler) Brief(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "topic must be one of 'guardian', 'scholar', 'vitals'")
		return
	}

	profile, err := h.users.GetSurvey(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("survey_load_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	brief, err := h.sessions.GenerateBrief(r.Context(), user, req.Topic, profile, req.Force)
	if err != nil {
		h.logger.Warn("brief_degraded",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(req.Topic)),
			zap.Error(err))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"topic": req.Topic,
		"brief": brief,
	})
}

// Reset clears the caller's cached AI sessions. Global reset also drops
// the shared assistants and is deferred to the worker so the request
// returns immediately.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ResetRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
	}

	if req.Global {
		job := queue.NewJob(queue.JobTypeSessionReset, user.ID, nil)
		if err := h.jobs.Enqueue(r.Context(), job); err != nil {
			h.logger.Error("reset_enqueue_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to schedule reset")
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]any{"scope": "global", "scheduled": true})
		return
	}

	userID := user.ID
	if err := h.sessions.ResetCache(r.Context(), &userID); err != nil {
		h.logger.Error("reset_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reset sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"scope": "user", "scheduled": false})
}
