// Package main is the entry point of the impact-hub API server.
//
// The server ingests order-completion events and serves the read-only
// progress, badge, challenge and leaderboard queries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mysterybag/impact-hub/config"
	"github.com/mysterybag/impact-hub/internal/app"
	apihttp "github.com/mysterybag/impact-hub/internal/interface/http"
	"github.com/mysterybag/impact-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(config.Options{})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Output: os.Stdout,
		Level:  cfg.Observability.LogLevel,
		Format: logger.Format(cfg.Observability.LogFormat),
		Attrs:  []slog.Attr{slog.String("service", "impact-hub-server"), slog.String("version", cfg.App.Version)},
	})
	log.Info("starting impact-hub server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE, EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	container, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	queries := container.QueryHandlers()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := apihttp.NewServer(apihttp.Config{
		Addr:             cfg.HTTP.Addr,
		ReadTimeout:      cfg.HTTP.ReadTimeout,
		WriteTimeout:     cfg.HTTP.WriteTimeout,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		IngestAPIKeyHash: cfg.HTTP.IngestAPIKeyHash,
		Version:          cfg.App.Version,
	}, apihttp.Dependencies{
		CompleteOrder:       container.CompleteOrderHandler(),
		GetProgress:         queries.Progress,
		GetBadges:           queries.Badges,
		GetCurrentChallenge: queries.CurrentChallenge,
		GetLeaderboard:      queries.Leaderboard,
		Calendar:            container.Calendar,
		HealthChecker:       container.Health,
		Logger:              log,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
