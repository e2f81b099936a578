package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/askracha/askracha/internal/answer"
	"github.com/askracha/askracha/internal/config"
	"github.com/askracha/askracha/internal/httpapi"
	"github.com/askracha/askracha/internal/identity"
	"github.com/askracha/askracha/internal/logging"
	"github.com/askracha/askracha/internal/ratelimit"
)

func main() {
	cfg, err := config.LoadServer()
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

	resolver := identity.NewResolver(cfg.JWTSecret)
	answerClient := answer.NewClient(cfg.AnswerAPIURL, 30*time.Second, 2, time.Second, logger)

	queryAPI := httpapi.NewQueryAPI(answerClient, logger)
	adminAPI := httpapi.NewAdminAPI(limiter, resolver, cfg.AdminToken, logger)
	rateLimitMW := httpapi.NewRateLimitMiddleware(limiter, resolver, httpapi.MiddlewareOptions{
		LimitedRoutes: queryAPI.LimitedRoutes(),
	}, logger)

	r := chi.NewRouter()
	r.Use(httpapi.RequestID)
	r.Use(rateLimitMW.Handler)
	queryAPI.RegisterRoutes(r)
	adminAPI.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", logging.WithField("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", logging.WithField("error", err.Error()))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", logging.WithField("error", err.Error()))
			os.Exit(1)
		}
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
