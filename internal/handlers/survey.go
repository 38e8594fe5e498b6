package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/request"
	"go.uber.org/zap"
)

// SurveyHandler handles the onboarding survey
type SurveyHandler struct {
	users  database.UserRepositoryInterface
	jobs   queue.JobQueue
	logger *zap.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(users database.UserRepositoryInterface, jobs queue.JobQueue, logger *zap.Logger) *SurveyHandler {
	return &SurveyHandler{users: users, jobs: jobs, logger: logger}
}

// RegisterRoutes registers survey routes on the given router.
// The router should already have the /api/v1/survey prefix.
func (h *SurveyHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSurvey).Methods("GET")
	r.HandleFunc("", h.SubmitSurvey).Methods("PUT")
}

// GetSurvey returns the stored survey profile, or null when none exists
func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	profile, err := h.users.GetSurvey(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("survey_load_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load survey")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"profile":   profile,
		"completed": user.SurveyCompleted || profile != nil,
	})
}

// SubmitSurvey stores the survey profile and queues a brief refresh for
// every topic, so stale briefs built from the old profile get replaced.
func (h *SurveyHandler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var profile models.SurveyProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if profile.IsEmpty() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Survey must have at least one field filled in")
		return
	}

	ctx := r.Context()
	if err := h.users.SetSurvey(ctx, user.ID, &profile); err != nil {
		h.logger.Error("survey_save_failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save survey")
		return
	}

	// Queue failures don't fail the save; briefs regenerate on demand anyway
	for _, topic := range models.AllTopics {
		topic := topic
		job := queue.NewJob(queue.JobTypeBriefRefresh, user.ID, &topic)
		if err := h.jobs.Enqueue(ctx, job); err != nil {
			h.logger.Warn("brief_refresh_enqueue_failed",
				zap.Error(err),
				zap.String("user_id", user.ID.String()),
				zap.String("topic", string(topic)),
			)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"profile":   &profile,
		"completed": true,
	})
}
