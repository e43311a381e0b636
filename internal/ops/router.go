// Package ops serves the operational HTTP surface: service health and
// scheduler job status. The diagnostics themselves are read through the
// upstream query gateway, not from here.
package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/efund/unitperf/internal/scheduler"
	"github.com/efund/unitperf/pkg/database"
	"github.com/efund/unitperf/pkg/logger"
	"github.com/efund/unitperf/pkg/redis"
)

// Handler backs the ops endpoints.
type Handler struct {
	db        *database.DB
	cache     *redis.Client
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewHandler creates a new ops handler. The scheduler may be nil when the
// process runs a one-off command.
func NewHandler(db *database.DB, cache *redis.Client, sched *scheduler.Scheduler, log *logger.Logger) *Handler {
	return &Handler{
		db:        db,
		cache:     cache,
		scheduler: sched,
		logger:    log,
	}
}

// NewRouter creates and configures the HTTP router
func NewRouter(h *Handler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/jobs", h.Jobs).Methods("GET")
	r.HandleFunc("/jobs/{name}/run", h.RunJob).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// Health reports database and cache health
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus, err := h.db.HealthCheck(ctx)
	status := http.StatusOK
	overall := "ok"
	if err != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	cacheStatus := "disabled"
	if h.cache != nil && h.cache.Enabled() {
		if err := h.cache.Redis().Ping(ctx).Err(); err != nil {
			cacheStatus = "unreachable"
		} else {
			cacheStatus = "ok"
		}
	}

	respondJSON(w, status, map[string]interface{}{
		"status":   overall,
		"service":  "unitperf",
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}

// Jobs reports scheduler statistics for every registered job
// GET /jobs
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, http.StatusNotFound, "Scheduler not running in this process")
		return
	}
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// RunJob triggers an immediate run of one job
// POST /jobs/{name}/run
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, http.StatusNotFound, "Scheduler not running in this process")
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Manual job run triggered")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					respondError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
