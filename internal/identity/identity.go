// Package identity resolves platform-specific request data into stable
// cross-platform user identities for rate limiting. The same person asking
// through the web API and through Discord maps onto identities that never
// collide with each other or with other users.
package identity

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Platform identifies which frontend a request arrived through.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformDiscord Platform = "discord"
)

// UserType distinguishes users with a verified account from users
// identified only by their network address.
type UserType string

const (
	UserTypeAuthenticated UserType = "authenticated"
	UserTypeAnonymous     UserType = "anonymous"
)

// unifiedPrefix returns the short prefix used in unified user ids.
func (t UserType) unifiedPrefix() string {
	if t == UserTypeAuthenticated {
		return "auth"
	}
	return "anon"
}

// UserIdentity is a per-request value, recomputed on every request and
// never persisted. Two identities share a rate limit iff their
// UnifiedUserID values are equal.
type UserIdentity struct {
	Platform       Platform `json:"platform"`
	PlatformUserID string   `json:"platform_user_id"`
	UnifiedUserID  string   `json:"unified_user_id"`
	UserType       UserType `json:"user_type"`
}

// RateLimitKey returns the key under which this identity is tracked.
func (id UserIdentity) RateLimitKey() string {
	return id.UnifiedUserID
}

// Resolver turns raw request data into UserIdentity values. JWTSecret is
// optional; when set, web requests carrying a valid HS256 bearer token
// resolve to the token's subject before any header or address fallback.
type Resolver struct {
	jwtSecret []byte
}

func NewResolver(jwtSecret string) *Resolver {
	r := &Resolver{}
	if jwtSecret != "" {
		r.jwtSecret = []byte(jwtSecret)
	}
	return r
}

// unifiedUserID builds the canonical rate-limit identifier. It is a pure
// function of its inputs; the platform is always included so identical raw
// ids on different platforms never share a limit.
func unifiedUserID(platform Platform, userType UserType, platformUserID string) string {
	return fmt.Sprintf("%s:%s:%s", userType.unifiedPrefix(), platform, platformUserID)
}

func makeIdentity(platform Platform, userType UserType, platformUserID string) UserIdentity {
	return UserIdentity{
		Platform:       platform,
		PlatformUserID: platformUserID,
		UnifiedUserID:  unifiedUserID(platform, userType, platformUserID),
		UserType:       userType,
	}
}

// ResolveWeb resolves a web request. Strategies in order, first match wins:
//  1. a valid bearer token's subject (when a JWT secret is configured)
//  2. the X-User-ID header set by the authenticating proxy
//  3. a session-stored user id
//  4. the first hop of X-Forwarded-For
//  5. X-Real-IP
//  6. the direct remote address
//  7. the "unknown" sentinel
//
// Strategies 1-3 yield authenticated identities, the rest anonymous. An
// empty or unparseable address collapses onto the shared "unknown" bucket,
// which is the intended degraded behavior rather than an error.
func (r *Resolver) ResolveWeb(headers http.Header, session map[string]string, remoteAddr string) UserIdentity {
	if sub := r.bearerSubject(headers.Get("Authorization")); sub != "" {
		return makeIdentity(PlatformWeb, UserTypeAuthenticated, sub)
	}

	if userID := strings.TrimSpace(headers.Get("X-User-ID")); userID != "" {
		return makeIdentity(PlatformWeb, UserTypeAuthenticated, userID)
	}

	if userID := strings.TrimSpace(session["user_id"]); userID != "" {
		return makeIdentity(PlatformWeb, UserTypeAuthenticated, userID)
	}

	return makeIdentity(PlatformWeb, UserTypeAnonymous, clientIP(headers, remoteAddr))
}

// ResolvePlatform resolves a messaging-platform user. Platform accounts
// are always authenticated since the platform enforces account existence.
func (r *Resolver) ResolvePlatform(platform Platform, platformUserID string) UserIdentity {
	return makeIdentity(platform, UserTypeAuthenticated, platformUserID)
}

// bearerSubject extracts the subject from a valid HS256 bearer token.
// Any parse or signature failure returns "" so resolution falls through
// to the next strategy instead of rejecting the request.
func (r *Resolver) bearerSubject(authorization string) string {
	if len(r.jwtSecret) == 0 {
		return ""
	}
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return ""
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// clientIP picks the best available client address for anonymous users.
func clientIP(headers http.Header, remoteAddr string) string {
	if xff := headers.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(headers.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	addr := strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
