package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/middleware"
	"github.com/zenithlabs/zenith-api/internal/queue"
)

// Version is the API version reported by /version. Overridden at build
// time with -ldflags.
var Version = "dev"

// HealthChecker handles health check requests
type HealthChecker struct {
	db    *database.DB
	jobs  queue.JobQueue
	redis *middleware.RedisClient
}

// NewHealthChecker creates a new health checker. Queue and redis may be
// nil; their checks are skipped in extended mode.
func NewHealthChecker(db *database.DB, jobs queue.JobQueue, redis *middleware.RedisClient) *HealthChecker {
	return &HealthChecker{db: db, jobs: jobs, redis: redis}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		checks := make(map[string]string)

		if err := h.checkDatabase(r.Context()); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.jobs != nil {
			if err := h.jobs.HealthCheck(r.Context()); err != nil {
				response.Status = "unhealthy"
				checks["queue"] = "unhealthy: " + err.Error()
			} else {
				checks["queue"] = "healthy"
			}
		}

		if h.redis != nil {
			if err := h.redis.Ping(r.Context()); err != nil {
				response.Status = "unhealthy"
				checks["redis"] = "unhealthy: " + err.Error()
			} else {
				checks["redis"] = "healthy"
			}
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Basic mode - just return that the server is running
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// VersionCheck handles the /version endpoint
func (h *HealthChecker) VersionCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// checkDatabase verifies the database connection
func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	return nil
}
