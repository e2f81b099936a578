// Package httpapi contains the HTTP enforcement adapters: the inbound
// rate-limit middleware, a per-handler decorator, the rate-limited product
// endpoints, and the admin/ops surface. Adapters translate limiter
// decisions into protocol responses; policy lives in internal/ratelimit.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/askracha/askracha/internal/identity"
	"github.com/askracha/askracha/internal/logging"
	"github.com/askracha/askracha/internal/ratelimit"
)

// Limiter is the slice of the rate limiter the HTTP adapters consume.
type Limiter interface {
	Check(ctx context.Context, userID string, opts ...ratelimit.CheckOption) (ratelimit.Result, error)
	Status(ctx context.Context, userID string) *ratelimit.Result
	Reset(ctx context.Context, userID string) bool
	Health(ctx context.Context) bool
}

// SessionReader extracts session data for identity resolution. The default
// web API is stateless and returns nil; deployments with session auth can
// plug their own.
type SessionReader func(r *http.Request) map[string]string

// RateLimitMiddleware gates a configured set of routes. Requests outside
// the set, OPTIONS preflights, and explicitly exempted routes pass through
// untouched regardless of rate-limit state.
type RateLimitMiddleware struct {
	limiter  Limiter
	resolver *identity.Resolver
	session  SessionReader
	limited  map[string]bool
	exempt   map[string]bool
	logger   *logging.Logger
}

// MiddlewareOptions configures route selection and session extraction.
type MiddlewareOptions struct {
	// LimitedRoutes is the allow-list of paths the middleware gates.
	LimitedRoutes []string
	// ExemptRoutes bypass the check even when listed as limited.
	ExemptRoutes []string
	Session      SessionReader
}

func NewRateLimitMiddleware(limiter Limiter, resolver *identity.Resolver, opts MiddlewareOptions, logger *logging.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = logging.Default()
	}

	limited := make(map[string]bool, len(opts.LimitedRoutes))
	for _, route := range opts.LimitedRoutes {
		limited[route] = true
	}
	exempt := make(map[string]bool, len(opts.ExemptRoutes))
	for _, route := range opts.ExemptRoutes {
		exempt[route] = true
	}

	return &RateLimitMiddleware{
		limiter:  limiter,
		resolver: resolver,
		session:  opts.Session,
		limited:  limited,
		exempt:   exempt,
		logger:   logger.Named("ratelimit-middleware"),
	}
}

// Handler is the middleware entry point, mountable on any chi or stdlib
// router.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.shouldLimit(r) {
			next.ServeHTTP(w, r)
			return
		}
		m.enforce(w, r, next)
	})
}

// RequireRateLimit gates a single handler with the same semantics as the
// middleware, for routes registered outside the global allow-list.
func (m *RateLimitMiddleware) RequireRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}
		m.enforce(w, r, next)
	}
}

func (m *RateLimitMiddleware) shouldLimit(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return false
	}
	if m.exempt[r.URL.Path] {
		return false
	}
	return m.limited[r.URL.Path]
}

// enforce runs the check and either short-circuits with a 429 or lets the
// handler run with rate-limit headers attached. Every internal failure
// here fails open: a broken limiter must never block the product, and it
// must never replace an unrelated error from the downstream handler.
func (m *RateLimitMiddleware) enforce(w http.ResponseWriter, r *http.Request, next http.Handler) {
	result, ok := m.decide(r)
	if !ok {
		next.ServeHTTP(w, r)
		return
	}

	if !result.Allowed {
		m.logger.Info("rate limit exceeded",
			logging.WithField("userId", result.UserID),
			logging.WithField("remainingSeconds", result.RemainingSeconds),
		)
		writeRateLimited(w, result)
		return
	}

	writeRateLimitHeaders(w.Header(), result)
	next.ServeHTTP(w, r)
}

// decide resolves the caller's identity and checks the limit. ok=false
// means the decision could not be made and the request proceeds as if no
// rate limiting existed.
func (m *RateLimitMiddleware) decide(r *http.Request) (result ratelimit.Result, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("rate limit check panicked, failing open",
				logging.WithField("panic", fmt.Sprint(rec)),
			)
			ok = false
		}
	}()

	var session map[string]string
	if m.session != nil {
		session = m.session(r)
	}

	id := m.resolver.ResolveWeb(r.Header, session, r.RemoteAddr)

	result, err := m.limiter.Check(r.Context(), id.RateLimitKey())
	if err != nil {
		// Only a caller bug reaches here; log it and fail open.
		m.logger.Error("rate limit check rejected identity",
			logging.WithField("error", err.Error()),
		)
		return ratelimit.Result{}, false
	}

	return result, true
}

type rateLimitedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
	ResetTime  string `json:"reset_time"`
	Type       string `json:"type"`
}

// writeRateLimitHeaders attaches the standard limit headers. The policy is
// one request per window, so remaining is always 0 until reset.
func writeRateLimitHeaders(h http.Header, result ratelimit.Result) {
	h.Set("X-RateLimit-Limit", "1")
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
}

func writeRateLimited(w http.ResponseWriter, result ratelimit.Result) {
	writeRateLimitHeaders(w.Header(), result)
	w.Header().Set("Retry-After", strconv.Itoa(result.RemainingSeconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(rateLimitedResponse{
		Error:      "Rate limit exceeded",
		Message:    fmt.Sprintf("Please wait %d seconds before asking another question", result.RemainingSeconds),
		RetryAfter: result.RemainingSeconds,
		ResetTime:  result.ResetTime.Format(time.RFC3339),
		Type:       "rate_limit",
	})
}
