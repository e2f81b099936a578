package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/askracha/askracha/internal/identity"
	"github.com/askracha/askracha/internal/logging"
)

// AdminAPI exposes the operational surface of the limiter: health for
// monitors, self-status for callers, and an admin-only reset. None of
// these routes are themselves rate limited.
type AdminAPI struct {
	limiter    Limiter
	resolver   *identity.Resolver
	adminToken string
	logger     *logging.Logger
}

func NewAdminAPI(limiter Limiter, resolver *identity.Resolver, adminToken string, logger *logging.Logger) *AdminAPI {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAPI{
		limiter:    limiter,
		resolver:   resolver,
		adminToken: adminToken,
		logger:     logger.Named("admin-api"),
	}
}

// RegisterRoutes mounts the ops and admin endpoints.
func (api *AdminAPI) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", api.handleHealth)
	r.Get("/api/ratelimit/health", api.handleHealth)
	r.Get("/api/ratelimit/status", api.handleStatus)
	r.Post("/api/admin/ratelimit/reset", api.requireAdmin(api.handleReset))
}

// requireAdmin guards admin routes with a shared token. With no token
// configured, admin routes are disabled rather than open.
func (api *AdminAPI) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.adminToken == "" {
			api.logger.Warn("admin endpoint called but no admin token configured")
			http.Error(w, `{"error":"admin access disabled"}`, http.StatusForbidden)
			return
		}

		token := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(api.adminToken)) != 1 {
			api.logger.Warn("admin endpoint called with bad token")
			http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// handleHealth handles GET /api/health
func (api *AdminAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := api.limiter.Health(r.Context())

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status":             statusWord(healthy),
		"service":            "askracha-api",
		"rate_limiter_store": statusWord(healthy),
	})
}

// handleStatus handles GET /api/ratelimit/status for the caller's own
// identity. Read-only; it never consumes a window.
func (api *AdminAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := api.resolver.ResolveWeb(r.Header, nil, r.RemoteAddr)

	result := api.limiter.Status(r.Context(), id.RateLimitKey())
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"throttled": false,
			"user_id":   id.RateLimitKey(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"throttled":         true,
		"user_id":           result.UserID,
		"remaining_seconds": result.RemainingSeconds,
		"reset_time":        result.ResetTime,
	})
}

type resetRequest struct {
	UserID string `json:"user_id"`
}

// handleReset handles POST /api/admin/ratelimit/reset
func (api *AdminAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	reset := api.limiter.Reset(r.Context(), userID)
	if reset {
		api.logger.Info("admin reset rate limit", logging.WithField("userId", userID))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"reset": reset})
}

func statusWord(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}
