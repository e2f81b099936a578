package identity

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestResolveWeb_StrategyOrder(t *testing.T) {
	resolver := NewResolver("")

	tests := []struct {
		name       string
		headers    http.Header
		session    map[string]string
		remoteAddr string
		wantID     string
		wantType   UserType
	}{
		{
			name:       "explicit user header wins",
			headers:    http.Header{"X-User-Id": {"alice"}, "X-Forwarded-For": {"9.9.9.9"}},
			remoteAddr: "1.2.3.4:5678",
			wantID:     "auth:web:alice",
			wantType:   UserTypeAuthenticated,
		},
		{
			name:       "session user id",
			headers:    http.Header{},
			session:    map[string]string{"user_id": "bob"},
			remoteAddr: "1.2.3.4:5678",
			wantID:     "auth:web:bob",
			wantType:   UserTypeAuthenticated,
		},
		{
			name:       "first forwarded hop",
			headers:    http.Header{"X-Forwarded-For": {"203.0.113.7, 10.0.0.1"}},
			remoteAddr: "1.2.3.4:5678",
			wantID:     "anon:web:203.0.113.7",
			wantType:   UserTypeAnonymous,
		},
		{
			name:       "real ip header",
			headers:    http.Header{"X-Real-Ip": {"198.51.100.9"}},
			remoteAddr: "1.2.3.4:5678",
			wantID:     "anon:web:198.51.100.9",
			wantType:   UserTypeAnonymous,
		},
		{
			name:       "remote addr host",
			headers:    http.Header{},
			remoteAddr: "1.2.3.4:5678",
			wantID:     "anon:web:1.2.3.4",
			wantType:   UserTypeAnonymous,
		},
		{
			name:       "remote addr without port",
			headers:    http.Header{},
			remoteAddr: "1.2.3.4",
			wantID:     "anon:web:1.2.3.4",
			wantType:   UserTypeAnonymous,
		},
		{
			name:       "nothing resolves to unknown sentinel",
			headers:    http.Header{},
			remoteAddr: "",
			wantID:     "anon:web:unknown",
			wantType:   UserTypeAnonymous,
		},
		{
			name:       "empty forwarded header falls through",
			headers:    http.Header{"X-Forwarded-For": {" , 10.0.0.1"}},
			remoteAddr: "",
			wantID:     "anon:web:unknown",
			wantType:   UserTypeAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := resolver.ResolveWeb(tt.headers, tt.session, tt.remoteAddr)
			if id.UnifiedUserID != tt.wantID {
				t.Errorf("UnifiedUserID = %q, want %q", id.UnifiedUserID, tt.wantID)
			}
			if id.UserType != tt.wantType {
				t.Errorf("UserType = %q, want %q", id.UserType, tt.wantType)
			}
			if id.Platform != PlatformWeb {
				t.Errorf("Platform = %q, want %q", id.Platform, PlatformWeb)
			}
		})
	}
}

func TestResolveWeb_EmptyForwardedFallsToRealIP(t *testing.T) {
	resolver := NewResolver("")
	headers := http.Header{"X-Forwarded-For": {"  "}, "X-Real-Ip": {"198.51.100.9"}}

	id := resolver.ResolveWeb(headers, nil, "")
	if id.UnifiedUserID != "anon:web:198.51.100.9" {
		t.Errorf("UnifiedUserID = %q, want %q", id.UnifiedUserID, "anon:web:198.51.100.9")
	}
}

func TestResolveWeb_BearerToken(t *testing.T) {
	const secret = "test-secret"
	resolver := NewResolver(secret)

	signed := func(sub string, key []byte, method jwt.SigningMethod) string {
		token := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub": sub,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := token.SignedString(key)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return s
	}

	t.Run("valid token wins over headers", func(t *testing.T) {
		headers := http.Header{
			"Authorization": {"Bearer " + signed("alice", []byte(secret), jwt.SigningMethodHS256)},
			"X-User-Id":     {"impostor"},
		}
		id := resolver.ResolveWeb(headers, nil, "1.2.3.4:99")
		if id.UnifiedUserID != "auth:web:alice" {
			t.Errorf("UnifiedUserID = %q, want %q", id.UnifiedUserID, "auth:web:alice")
		}
	})

	t.Run("bad signature falls through", func(t *testing.T) {
		headers := http.Header{
			"Authorization": {"Bearer " + signed("alice", []byte("wrong-secret"), jwt.SigningMethodHS256)},
		}
		id := resolver.ResolveWeb(headers, nil, "1.2.3.4:99")
		if id.UnifiedUserID != "anon:web:1.2.3.4" {
			t.Errorf("UnifiedUserID = %q, want %q", id.UnifiedUserID, "anon:web:1.2.3.4")
		}
	})

	t.Run("garbage token falls through", func(t *testing.T) {
		headers := http.Header{"Authorization": {"Bearer not.a.token"}}
		id := resolver.ResolveWeb(headers, nil, "1.2.3.4:99")
		if id.UserType != UserTypeAnonymous {
			t.Errorf("UserType = %q, want anonymous", id.UserType)
		}
	})

	t.Run("no secret configured ignores tokens", func(t *testing.T) {
		noJWT := NewResolver("")
		headers := http.Header{
			"Authorization": {"Bearer " + signed("alice", []byte(secret), jwt.SigningMethodHS256)},
		}
		id := noJWT.ResolveWeb(headers, nil, "1.2.3.4:99")
		if id.UserType != UserTypeAnonymous {
			t.Errorf("UserType = %q, want anonymous", id.UserType)
		}
	})
}

func TestResolvePlatform(t *testing.T) {
	resolver := NewResolver("")

	id := resolver.ResolvePlatform(PlatformDiscord, "123456789")
	if id.UnifiedUserID != "auth:discord:123456789" {
		t.Errorf("UnifiedUserID = %q, want %q", id.UnifiedUserID, "auth:discord:123456789")
	}
	if id.UserType != UserTypeAuthenticated {
		t.Error("platform users must always be authenticated")
	}
	if id.RateLimitKey() != id.UnifiedUserID {
		t.Error("RateLimitKey should return the unified user id")
	}
}

func TestUnifiedUserID_Deterministic(t *testing.T) {
	resolver := NewResolver("")

	first := resolver.ResolvePlatform(PlatformDiscord, "42")
	for i := 0; i < 10; i++ {
		again := resolver.ResolvePlatform(PlatformDiscord, "42")
		if again.UnifiedUserID != first.UnifiedUserID {
			t.Fatalf("UnifiedUserID changed across calls: %q vs %q", again.UnifiedUserID, first.UnifiedUserID)
		}
	}
}

func TestUnifiedUserID_PlatformIsolation(t *testing.T) {
	resolver := NewResolver("")

	discord := resolver.ResolvePlatform(PlatformDiscord, "same-id")
	web := resolver.ResolvePlatform(PlatformWeb, "same-id")
	if discord.UnifiedUserID == web.UnifiedUserID {
		t.Errorf("identical raw ids on different platforms collided: %q", discord.UnifiedUserID)
	}

	a := resolver.ResolvePlatform(PlatformDiscord, "user-a")
	b := resolver.ResolvePlatform(PlatformDiscord, "user-b")
	if a.UnifiedUserID == b.UnifiedUserID {
		t.Errorf("distinct ids on the same platform collided: %q", a.UnifiedUserID)
	}
}
