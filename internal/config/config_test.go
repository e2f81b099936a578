package config

import (
	"errors"
	"testing"
	"time"
)

// clearRateLimitEnv resets the shared rate-limit variables so tests see
// defaults regardless of the developer's shell.
func clearRateLimitEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RATE_LIMIT_SECONDS", "RATE_LIMIT_KEY_PREFIX", "RATE_LIMIT_STORE",
		"REDIS_URL", "REDIS_HOST", "REDIS_PORT", "REDIS_DB", "REDIS_PASSWORD",
		"REDIS_MAX_CONNECTIONS", "SERVER_PORT", "ADMIN_API_TOKEN",
		"RATE_LIMIT_JWT_SECRET", "ANSWER_API_URL", "LOG_LEVEL",
		"DISCORD_TOKEN", "ASKRACHA_API_URL", "API_TIMEOUT",
		"MAX_RESPONSE_LENGTH", "RETRY_ATTEMPTS", "RETRY_DELAY_MS", "HEALTH_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearRateLimitEnv(t)

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.AnswerAPIURL != "http://localhost:8100" {
		t.Errorf("AnswerAPIURL = %q", cfg.AnswerAPIURL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("WindowSeconds = %d, want 60", cfg.RateLimit.WindowSeconds)
	}
	if cfg.RateLimit.Window() != 60*time.Second {
		t.Errorf("Window() = %v, want 60s", cfg.RateLimit.Window())
	}
	if cfg.RateLimit.KeyPrefix != "askracha:ratelimit" {
		t.Errorf("KeyPrefix = %q", cfg.RateLimit.KeyPrefix)
	}
	if cfg.RateLimit.Store != StoreRedis {
		t.Errorf("Store = %q, want redis", cfg.RateLimit.Store)
	}
	if cfg.RateLimit.RedisHost != "localhost" || cfg.RateLimit.RedisPort != 6379 {
		t.Errorf("redis address = %s:%d, want localhost:6379", cfg.RateLimit.RedisHost, cfg.RateLimit.RedisPort)
	}
	if cfg.RateLimit.MaxConnections != 10 {
		t.Errorf("MaxConnections = %d, want 10", cfg.RateLimit.MaxConnections)
	}
}

func TestLoadServer_Overrides(t *testing.T) {
	clearRateLimitEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_SECONDS", "30")
	t.Setenv("RATE_LIMIT_STORE", StoreMemory)
	t.Setenv("RATE_LIMIT_KEY_PREFIX", "custom:limits")
	t.Setenv("ADMIN_API_TOKEN", "hunter2")
	t.Setenv("REDIS_URL", "redis://example:6380/2")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.AdminToken != "hunter2" {
		t.Errorf("AdminToken = %q", cfg.AdminToken)
	}
	if cfg.RateLimit.WindowSeconds != 30 {
		t.Errorf("WindowSeconds = %d, want 30", cfg.RateLimit.WindowSeconds)
	}
	if cfg.RateLimit.Store != StoreMemory {
		t.Errorf("Store = %q, want memory", cfg.RateLimit.Store)
	}
	if cfg.RateLimit.KeyPrefix != "custom:limits" {
		t.Errorf("KeyPrefix = %q", cfg.RateLimit.KeyPrefix)
	}
	if cfg.RateLimit.RedisURL != "redis://example:6380/2" {
		t.Errorf("RedisURL = %q", cfg.RateLimit.RedisURL)
	}
}

func TestLoadServer_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric port", key: "SERVER_PORT", value: "abc"},
		{name: "non-numeric window", key: "RATE_LIMIT_SECONDS", value: "soon"},
		{name: "zero window", key: "RATE_LIMIT_SECONDS", value: "0"},
		{name: "negative window", key: "RATE_LIMIT_SECONDS", value: "-5"},
		{name: "unknown store", key: "RATE_LIMIT_STORE", value: "cassandra"},
		{name: "bad answer url", key: "ANSWER_API_URL", value: "localhost:8100"},
		{name: "zero max connections", key: "REDIS_MAX_CONNECTIONS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearRateLimitEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadServer()
			if err == nil {
				t.Fatalf("LoadServer accepted %s=%q", tt.key, tt.value)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error type = %T, want *ConfigurationError", err)
			}
		})
	}
}

func TestLoadBot_RequiresToken(t *testing.T) {
	clearRateLimitEnv(t)

	_, err := LoadBot()
	if err == nil {
		t.Fatal("LoadBot succeeded without DISCORD_TOKEN")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *ConfigurationError", err)
	}
}

func TestLoadBot_Defaults(t *testing.T) {
	clearRateLimitEnv(t)
	t.Setenv("DISCORD_TOKEN", "token-123")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}

	if cfg.DiscordToken != "token-123" {
		t.Errorf("DiscordToken = %q", cfg.DiscordToken)
	}
	if cfg.APIURL != "http://localhost:5000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want 10s", cfg.APITimeout)
	}
	if cfg.MaxResponseLength != 2000 {
		t.Errorf("MaxResponseLength = %d, want 2000", cfg.MaxResponseLength)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", cfg.RetryAttempts)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", cfg.RetryDelay)
	}
	if cfg.HealthPort != "8000" {
		t.Errorf("HealthPort = %q, want 8000", cfg.HealthPort)
	}
}

func TestLoadBot_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero timeout", key: "API_TIMEOUT", value: "0"},
		{name: "non-numeric timeout", key: "API_TIMEOUT", value: "fast"},
		{name: "zero response length", key: "MAX_RESPONSE_LENGTH", value: "0"},
		{name: "negative retries", key: "RETRY_ATTEMPTS", value: "-1"},
		{name: "negative delay", key: "RETRY_DELAY_MS", value: "-100"},
		{name: "bad api url", key: "ASKRACHA_API_URL", value: "ftp://host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearRateLimitEnv(t)
			t.Setenv("DISCORD_TOKEN", "token-123")
			t.Setenv(tt.key, tt.value)

			if _, err := LoadBot(); err == nil {
				t.Fatalf("LoadBot accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
