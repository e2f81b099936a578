package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askracha/askracha/internal/answer"
	"github.com/askracha/askracha/internal/bot"
	"github.com/askracha/askracha/internal/config"
	"github.com/askracha/askracha/internal/identity"
	"github.com/askracha/askracha/internal/logging"
	"github.com/askracha/askracha/internal/ratelimit"
)

func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		logging.Default().Error("failed to load config", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	store, err := newStore(cfg.RateLimit)
	if err != nil {
		logger.Error("failed to init rate limit store", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	limiter := ratelimit.New(store, ratelimit.Config{
		Window:    cfg.RateLimit.Window(),
		KeyPrefix: cfg.RateLimit.KeyPrefix,
	}, logger)

	resolver := identity.NewResolver("")
	gate := bot.NewGate(limiter, resolver, logger)
	processor := bot.NewProcessor(cfg.MaxResponseLength)
	client := answer.NewClient(cfg.APIURL, cfg.APITimeout, cfg.RetryAttempts, cfg.RetryDelay, logger)

	b, err := bot.New(cfg.DiscordToken, gate, processor, client, logger)
	if err != nil {
		logger.Error("failed to create bot", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		logger.Error("failed to connect to discord", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	defer b.Stop()

	health := bot.NewHealthServer(cfg.HealthPort, gate, logger)
	health.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Stop(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.WithField("error", err.Error()))
	}
}

func newStore(cfg config.RateLimitConfig) (ratelimit.Store, error) {
	if cfg.Store == config.StoreMemory {
		return ratelimit.NewMemoryStore(), nil
	}
	return ratelimit.NewRedisStore(ratelimit.RedisConfig{
		URL:            cfg.RedisURL,
		Host:           cfg.RedisHost,
		Port:           cfg.RedisPort,
		DB:             cfg.RedisDB,
		Password:       cfg.RedisPassword,
		MaxConnections: cfg.MaxConnections,
	})
}
