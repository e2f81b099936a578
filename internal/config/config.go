// Package config loads and validates process configuration from the
// environment. The engine packages never read ambient environment state;
// they accept only the validated structs produced here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigurationError reports invalid or missing settings at startup.
// It is fatal: callers must abort initialization.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

func configErrorf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// RateLimitConfig is shared by the web API and the bot; both must point
// at the same store for cross-platform limits to hold.
type RateLimitConfig struct {
	WindowSeconds  int
	KeyPrefix      string
	Store          string
	RedisURL       string
	RedisHost      string
	RedisPort      int
	RedisDB        int
	RedisPassword  string
	MaxConnections int
}

// Window returns the configured window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// ServerConfig configures the web API binary.
type ServerConfig struct {
	Port         string
	AdminToken   string
	JWTSecret    string
	AnswerAPIURL string
	LogLevel     string
	RateLimit    RateLimitConfig
}

// BotConfig configures the Discord bot binary.
type BotConfig struct {
	DiscordToken      string
	APIURL            string
	APITimeout        time.Duration
	MaxResponseLength int
	RetryAttempts     int
	RetryDelay        time.Duration
	HealthPort        string
	LogLevel          string
	RateLimit         RateLimitConfig
}

// LoadServer reads web API configuration from the environment. A .env
// file is honored when present.
func LoadServer() (ServerConfig, error) {
	_ = godotenv.Load()

	rl, err := loadRateLimit()
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		Port:         getEnv("SERVER_PORT", "5000"),
		AdminToken:   os.Getenv("ADMIN_API_TOKEN"),
		JWTSecret:    os.Getenv("RATE_LIMIT_JWT_SECRET"),
		AnswerAPIURL: getEnv("ANSWER_API_URL", "http://localhost:8100"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RateLimit:    rl,
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return ServerConfig{}, configErrorf("invalid SERVER_PORT %q: must be numeric", cfg.Port)
	}
	if !strings.HasPrefix(cfg.AnswerAPIURL, "http://") && !strings.HasPrefix(cfg.AnswerAPIURL, "https://") {
		return ServerConfig{}, configErrorf("ANSWER_API_URL must start with http:// or https://")
	}

	return cfg, nil
}

// LoadBot reads Discord bot configuration from the environment.
func LoadBot() (BotConfig, error) {
	_ = godotenv.Load()

	rl, err := loadRateLimit()
	if err != nil {
		return BotConfig{}, err
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return BotConfig{}, configErrorf("DISCORD_TOKEN environment variable is required")
	}

	apiTimeout, err := getEnvInt("API_TIMEOUT", 10)
	if err != nil {
		return BotConfig{}, err
	}
	if apiTimeout <= 0 {
		return BotConfig{}, configErrorf("API_TIMEOUT must be positive")
	}

	maxLen, err := getEnvInt("MAX_RESPONSE_LENGTH", 2000)
	if err != nil {
		return BotConfig{}, err
	}
	if maxLen <= 0 {
		return BotConfig{}, configErrorf("MAX_RESPONSE_LENGTH must be positive")
	}

	retryAttempts, err := getEnvInt("RETRY_ATTEMPTS", 3)
	if err != nil {
		return BotConfig{}, err
	}
	if retryAttempts < 0 {
		return BotConfig{}, configErrorf("RETRY_ATTEMPTS must be non-negative")
	}

	retryDelayMs, err := getEnvInt("RETRY_DELAY_MS", 1000)
	if err != nil {
		return BotConfig{}, err
	}
	if retryDelayMs < 0 {
		return BotConfig{}, configErrorf("RETRY_DELAY_MS must be non-negative")
	}

	cfg := BotConfig{
		DiscordToken:      token,
		APIURL:            getEnv("ASKRACHA_API_URL", "http://localhost:5000"),
		APITimeout:        time.Duration(apiTimeout) * time.Second,
		MaxResponseLength: maxLen,
		RetryAttempts:     retryAttempts,
		RetryDelay:        time.Duration(retryDelayMs) * time.Millisecond,
		HealthPort:        getEnv("HEALTH_PORT", "8000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RateLimit:         rl,
	}

	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return BotConfig{}, configErrorf("ASKRACHA_API_URL must start with http:// or https://")
	}

	return cfg, nil
}

func loadRateLimit() (RateLimitConfig, error) {
	window, err := getEnvInt("RATE_LIMIT_SECONDS", 60)
	if err != nil {
		return RateLimitConfig{}, err
	}
	if window <= 0 {
		return RateLimitConfig{}, configErrorf("RATE_LIMIT_SECONDS must be positive")
	}

	store := getEnv("RATE_LIMIT_STORE", StoreRedis)
	if store != StoreRedis && store != StoreMemory {
		return RateLimitConfig{}, configErrorf("invalid RATE_LIMIT_STORE %q: must be %q or %q", store, StoreRedis, StoreMemory)
	}

	redisPort, err := getEnvInt("REDIS_PORT", 6379)
	if err != nil {
		return RateLimitConfig{}, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RateLimitConfig{}, err
	}
	maxConns, err := getEnvInt("REDIS_MAX_CONNECTIONS", 10)
	if err != nil {
		return RateLimitConfig{}, err
	}
	if maxConns <= 0 {
		return RateLimitConfig{}, configErrorf("REDIS_MAX_CONNECTIONS must be positive")
	}

	return RateLimitConfig{
		WindowSeconds:  window,
		KeyPrefix:      getEnv("RATE_LIMIT_KEY_PREFIX", "askracha:ratelimit"),
		Store:          store,
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      redisPort,
		RedisDB:        redisDB,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MaxConnections: maxConns,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, configErrorf("invalid %s %q: must be an integer", key, value)
	}
	return parsed, nil
}
