package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/api"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/audit"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/config"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/tracing"
)

var version = "dev"

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	// 1.5 Init Logger
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	zlog.Info().Msg("logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    1,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}

	// 3. Redis for the shared rate limiter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			zlog.Warn().Err(err).Msg("redis ping failed: rate limiting fails open until it recovers")
		}
		cancel()
		defer rdb.Close()
	} else {
		zlog.Warn().Msg("REDIS_URL empty: using per-process rate limiting")
	}

	// 4. Audit trail
	var pub audit.MessagePublisher
	if cfg.RabbitURL != "" {
		p, err := audit.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			zlog.Fatal().Err(err).Msg("rabbit publisher init failed")
		}
		defer p.Close()
		pub = p
		zlog.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: dashboard mutations are only logged")
	}
	sink := audit.NewSink(audit.New(logger.Log), pub)

	// 5. Dashboard sessions
	client := downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  cfg.GatewayReadTimeout,
		WriteTimeout: cfg.GatewayWriteTimeout,
	})
	store := dashboard.NewSessionStore(&dashboard.SessionFactory{
		BaseURL: cfg.UpstreamAPIURL,
		Client:  client,
		Views:   cfg.Views,
		Audit:   sink,
	}, cfg.SessionTTL, dashboard.WithMaxSessionsPerUser(cfg.SessionsPerUser))
	store.StartJanitor(ctx, cfg.SessionTTL/2)

	// 6. Setup Router
	r, err := api.NewRouter(api.Deps{Config: cfg, Sessions: store, Redis: rdb})
	if err != nil {
		zlog.Fatal().Err(err).Msg("router init failed")
	}

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Str("version", version).Msg("dashboard BFF starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http shutdown failed")
	}
	store.CloseAll()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("tracer shutdown failed")
	}
}
