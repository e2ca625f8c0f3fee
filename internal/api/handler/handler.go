// Package handler provides HTTP handlers for the alert API endpoints.
// Handlers read through the notification store and preference store;
// the scheduling pass itself runs in the engine, not here.
package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JeffersonAlvarez16/leoncito/internal/api/respond"
	"github.com/JeffersonAlvarez16/leoncito/internal/cache"
	"github.com/JeffersonAlvarez16/leoncito/internal/config"
	"github.com/JeffersonAlvarez16/leoncito/internal/connectivity"
	"github.com/JeffersonAlvarez16/leoncito/internal/delivery"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
	"github.com/JeffersonAlvarez16/leoncito/internal/scheduler"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool       *pgxpool.Pool
	cache      *cache.Cache
	cfg        *config.Config
	store      notifications.Store
	prefs      notifications.PreferenceStore
	builder    *notifications.Builder
	sched      *scheduler.Scheduler
	gate       *notifications.Gate
	monitor    *connectivity.Monitor
	tokens     delivery.TokenSource
	pushActive bool
}

// New creates a Handler with shared dependencies. sched and monitor may be
// nil when the API runs without a foreground scheduling session.
func New(pool *pgxpool.Pool, c *cache.Cache, cfg *config.Config,
	store notifications.Store, prefs notifications.PreferenceStore,
	builder *notifications.Builder, sched *scheduler.Scheduler,
	gate *notifications.Gate, monitor *connectivity.Monitor,
	tokens delivery.TokenSource, pushActive bool) *Handler {
	return &Handler{
		pool:       pool,
		cache:      c,
		cfg:        cfg,
		store:      store,
		prefs:      prefs,
		builder:    builder,
		sched:      sched,
		gate:       gate,
		monitor:    monitor,
		tokens:     tokens,
		pushActive: pushActive,
	}
}

// Config exposes the loaded configuration to the router.
func (h *Handler) Config() *config.Config {
	return h.cfg
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Leoncito Alert API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"optimizations": []string{
			"pgxpool_connection_pooling",
			"prepared_statements",
			"gzip_compression",
			"in_memory_cache",
			"etag_support",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
