// Package bot is the Discord frontend: the message gate that enforces
// rate limits before a question reaches the answer pipeline, plus the
// message processing and cooldown templates around it.
package bot

import (
	"context"

	"github.com/askracha/askracha/internal/identity"
	"github.com/askracha/askracha/internal/logging"
	"github.com/askracha/askracha/internal/ratelimit"
)

// Limiter is the slice of the rate limiter the bot consumes.
type Limiter interface {
	Check(ctx context.Context, userID string, opts ...ratelimit.CheckOption) (ratelimit.Result, error)
	Status(ctx context.Context, userID string) *ratelimit.Result
	Reset(ctx context.Context, userID string) bool
	Health(ctx context.Context) bool
}

// Gate resolves Discord senders to cross-platform identities and checks
// them against the shared limiter. It shares the store with the web API,
// so a question asked on the web throttles the same person on Discord.
type Gate struct {
	limiter  Limiter
	resolver *identity.Resolver
	logger   *logging.Logger
}

func NewGate(limiter Limiter, resolver *identity.Resolver, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{
		limiter:  limiter,
		resolver: resolver,
		logger:   logger.Named("bot-gate"),
	}
}

func (g *Gate) key(discordUserID string) string {
	return g.resolver.ResolvePlatform(identity.PlatformDiscord, discordUserID).RateLimitKey()
}

// CheckUser decides whether the sender may ask a question now. Internal
// limiter errors fail open so a broken limiter never silences the bot.
func (g *Gate) CheckUser(ctx context.Context, discordUserID string) ratelimit.Result {
	result, err := g.limiter.Check(ctx, g.key(discordUserID))
	if err != nil {
		g.logger.Error("rate limit check rejected identity, failing open",
			logging.WithField("discordUserId", discordUserID),
			logging.WithField("error", err.Error()),
		)
		return ratelimit.Result{Allowed: true}
	}
	return result
}

// UserStatus reports the sender's current throttle state without
// consuming a window.
func (g *Gate) UserStatus(ctx context.Context, discordUserID string) *ratelimit.Result {
	return g.limiter.Status(ctx, g.key(discordUserID))
}

// ResetUser clears the sender's window, for operator use.
func (g *Gate) ResetUser(ctx context.Context, discordUserID string) bool {
	return g.limiter.Reset(ctx, g.key(discordUserID))
}

// Healthy reports whether the shared limiter store is reachable.
func (g *Gate) Healthy(ctx context.Context) bool {
	return g.limiter.Health(ctx)
}
