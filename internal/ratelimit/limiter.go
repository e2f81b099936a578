// Package ratelimit enforces one policy: at most one allowed action per
// identity per fixed time window. The window is anchored at the last
// allowed request; denied requests never move it. State lives in a shared
// atomic store so every process enforcing the limit sees the same answer.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/askracha/askracha/internal/logging"
)

const (
	DefaultWindow    = 60 * time.Second
	DefaultKeyPrefix = "askracha:ratelimit"
)

// ErrEmptyKey reports a caller bug: rate limit decisions require an
// identity. It is never converted into a fail-open allow.
var ErrEmptyKey = errors.New("rate limit user id cannot be empty")

// Config is loaded once at startup and shared by every adapter in the
// process.
type Config struct {
	Window    time.Duration
	KeyPrefix string
}

// Result is the transient decision value adapters branch on. It is never
// persisted. RemainingSeconds is 0 when the request was allowed.
type Result struct {
	Allowed          bool      `json:"allowed"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ResetTime        time.Time `json:"reset_time"`
	UserID           string    `json:"user_id"`
}

// Limiter is the policy core. One Limiter is built per process and passed
// into every adapter; there is no ambient global instance.
type Limiter struct {
	store  Store
	window time.Duration
	prefix string
	logger *logging.Logger

	// now is swapped out by tests.
	now func() time.Time
}

func New(store Store, cfg Config, logger *logging.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Limiter{
		store:  store,
		window: cfg.Window,
		prefix: cfg.KeyPrefix,
		logger: logger.Named("ratelimit"),
		now:    time.Now,
	}
}

type checkOptions struct {
	window time.Duration
}

type CheckOption func(*checkOptions)

// WithWindow overrides the configured window for a single check.
func WithWindow(d time.Duration) CheckOption {
	return func(o *checkOptions) {
		if d > 0 {
			o.window = d
		}
	}
}

// storeOutcome classifies what the store said about one check.
type storeOutcome int

const (
	outcomeAllowed storeOutcome = iota
	outcomeDenied
	outcomeUnknown
)

// resolve maps a store outcome to the final allow/deny decision. Unknown
// means the store could not answer; an unavailable limiter must never
// block the product it protects, so Unknown resolves to allowed.
func resolve(o storeOutcome) bool {
	return o != outcomeDenied
}

// Check atomically decides whether userID may act now. Concurrent checks
// for the same identity are serialized by the store: exactly one wins the
// window. Store failures fail open and are logged, never propagated. An
// empty userID returns ErrEmptyKey.
func (l *Limiter) Check(ctx context.Context, userID string, opts ...CheckOption) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, ErrEmptyKey
	}

	options := checkOptions{window: l.window}
	for _, opt := range opts {
		opt(&options)
	}
	window := options.window

	now := l.now()
	won, last, err := l.store.Acquire(ctx, l.storeKey(userID), now, window)

	var outcome storeOutcome
	switch {
	case err != nil:
		l.logger.Warn("rate limit store unavailable, failing open",
			logging.WithField("userId", userID),
			logging.WithField("error", err.Error()),
		)
		outcome = outcomeUnknown
	case won:
		outcome = outcomeAllowed
	default:
		outcome = outcomeDenied
	}

	if resolve(outcome) {
		return Result{
			Allowed:   true,
			ResetTime: now.Add(window),
			UserID:    userID,
		}, nil
	}

	return l.denial(userID, now, last, window), nil
}

// Status reports whether userID is currently throttled without touching
// the window. Returns nil when unthrottled, unknown, or on store failure.
func (l *Limiter) Status(ctx context.Context, userID string) *Result {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}

	last, ok, err := l.store.Get(ctx, l.storeKey(userID))
	if err != nil {
		l.logger.Warn("rate limit status unavailable",
			logging.WithField("userId", userID),
			logging.WithField("error", err.Error()),
		)
		return nil
	}
	if !ok {
		return nil
	}

	now := l.now()
	if now.Sub(last) >= l.window {
		return nil
	}

	result := l.denial(userID, now, last, l.window)
	return &result
}

// Reset clears the window for userID, forcing it back to unthrottled.
// Returns whether a live record existed. Fails closed on store failure.
func (l *Limiter) Reset(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}

	deleted, err := l.store.Delete(ctx, l.storeKey(userID))
	if err != nil {
		l.logger.Warn("rate limit reset failed",
			logging.WithField("userId", userID),
			logging.WithField("error", err.Error()),
		)
		return false
	}

	if deleted {
		l.logger.Info("rate limit reset", logging.WithField("userId", userID))
	}
	return deleted
}

// Health probes the store, independent of any rate-limit decision.
func (l *Limiter) Health(ctx context.Context) bool {
	if err := l.store.Ping(ctx); err != nil {
		l.logger.Error("rate limit store health check failed",
			logging.WithField("error", err.Error()),
		)
		return false
	}
	return true
}

// Window returns the configured default window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

func (l *Limiter) storeKey(userID string) string {
	return l.prefix + ":" + SanitizeKey(userID)
}

// denial builds the denied result from the stored claim timestamp. The
// reset time is anchored at the last allowed request, so repeated denials
// report a consistent countdown.
func (l *Limiter) denial(userID string, now, last time.Time, window time.Duration) Result {
	if last.IsZero() {
		// Claim value was unreadable; report a full window.
		return Result{
			Allowed:          false,
			RemainingSeconds: int(window.Seconds()),
			ResetTime:        now.Add(window),
			UserID:           userID,
		}
	}

	remaining := int(math.Ceil((window - now.Sub(last)).Seconds()))
	max := int(window.Seconds())
	if remaining > max {
		remaining = max
	}
	if remaining < 1 {
		remaining = 1
	}

	return Result{
		Allowed:          false,
		RemainingSeconds: remaining,
		ResetTime:        last.Add(window),
		UserID:           userID,
	}
}
