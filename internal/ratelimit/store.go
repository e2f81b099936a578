package ratelimit

import (
	"context"
	"regexp"
	"time"
)

// Store is the atomic key-value backend shared by every process that
// enforces rate limits. Correctness is delegated entirely to Acquire's
// per-key atomicity; the limiter holds no locks of its own.
type Store interface {
	// Acquire atomically claims key for ttl if it is vacant, recording now
	// as the claim timestamp. When the claim is won it returns ok=true.
	// When another claim is still live it returns ok=false along with the
	// timestamp of that claim. Exactly one concurrent caller per key wins.
	Acquire(ctx context.Context, key string, now time.Time, ttl time.Duration) (ok bool, last time.Time, err error)

	// Get returns the live claim timestamp for key, ok=false if vacant.
	// Never mutates the store.
	Get(ctx context.Context, key string) (last time.Time, ok bool, err error)

	// Delete removes the claim for key, reporting whether one existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	Close() error
}

var keyDisallowed = regexp.MustCompile(`[^A-Za-z0-9_\-@.]`)

// SanitizeKey replaces every character outside the allow-list
// [A-Za-z0-9_\-@.] with an underscore. Every identifier passes through
// here before it becomes part of a store key, so a crafted user id cannot
// inject separators or patterns into the shared keyspace.
func SanitizeKey(s string) string {
	return keyDisallowed.ReplaceAllString(s, "_")
}
