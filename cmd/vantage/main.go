package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/vantagecrm/vantage/pkg/api"
	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/config"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/ratelimit"
	"github.com/vantagecrm/vantage/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open storage")
		os.Exit(1)
	}
	defer cleanup()

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:     []byte(cfg.Auth.SigningSecret),
		Algorithm:  cfg.Auth.Algorithm,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		logger.WithError(err).Error("failed to build token issuer")
		os.Exit(1)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer client.Close()

		limiter = ratelimit.New(client, ratelimit.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}, logger)

		// The limiter fails open, so an unreachable Redis only costs
		// protection, never availability.
		if err := limiter.HealthCheck(ctx); err != nil {
			logger.WithError(err).Warn("rate limit store unreachable at startup")
		}
	}

	server := api.NewServer(cfg, store, issuer, limiter, logger, metrics)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStore builds the configured persistence backend
func openStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := storage.OpenPostgres(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage")
		return store, func() { store.Close() }, nil
	default:
		logger.Warn("using in-memory storage, data will not survive restarts")
		return storage.NewMemoryStore(), func() {}, nil
	}
}
