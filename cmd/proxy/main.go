package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"corrector-proxy/internal/cache"
	"corrector-proxy/internal/config"
	"corrector-proxy/internal/dedup"
	"corrector-proxy/internal/handlers"
	"corrector-proxy/internal/httpserver"
	"corrector-proxy/internal/metrics"
	"corrector-proxy/internal/ratelimit"
	"corrector-proxy/internal/registry"
	"corrector-proxy/internal/upstream"
	"corrector-proxy/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("proxy exited with error: %v", err)
	}
}

func run() error {
	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.New(cfg.Env, os.Getenv("LOG_LEVEL"))
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", zap.Error(err))
		return err
	}

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("upstream_base_url", cfg.OpenAIBaseURL),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
		zap.Bool("test_mode", cfg.TestMode),
	)

	ctx := context.Background()

	// ----- Installation store -----
	store, err := registry.OpenStore(ctx, registry.StoreConfig{
		Driver:      cfg.StorageDriver,
		Path:        cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
	}, logger)
	if err != nil {
		logger.Error("installation store unavailable", zap.Error(err))
		return err
	}
	defer store.Close()

	reg := registry.New(store, logger)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Response cache -----
	responseCache := cache.New(cache.Config{
		Backend:    cfg.CacheBackend,
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
		Prefix:     "corrector",
	}, redisClient)
	responseCache = cache.NewLoggingCache(responseCache)

	// ----- Upstream client -----
	upstreamClient, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.UpstreamTimeout,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := upstreamClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Handlers -----
	registerHandler := handlers.NewRegisterHandler(reg)
	transformHandler := handlers.NewTransformHandler(handlers.TransformDeps{
		Registry:      reg,
		TokenLimiter:  ratelimit.New("token", cfg.TokenRateMax, cfg.TokenRateWindow),
		Cache:         responseCache,
		Dedup:         dedup.New(),
		Upstream:      upstreamClient,
		MaxTextLength: cfg.MaxTextLength,
		TestMode:      cfg.TestMode,
	})

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Options{
		Env:            cfg.Env,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		GlobalLimiter:  ratelimit.New("global", cfg.RateLimitMax, cfg.RateLimitWindow),
		RequestTimeout: cfg.UpstreamTimeout + 5*time.Second,
	}, registerHandler, transformHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting proxy",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.Env),
	)

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			serverErr <- err
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-stop:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
