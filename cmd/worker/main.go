// Package main is the entry point of the impact-hub background worker.
//
// The worker:
//   - materializes leaderboards for every period and refreshes the cache
//   - prunes activity-log entries past the deduplication window
//   - consumes progress notifications from the event bus
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
	"github.com/mysterybag/impact-hub/internal/application/eventhandler"
	"github.com/mysterybag/impact-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
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
		Attrs:  []slog.Attr{slog.String("service", "impact-hub-worker"), slog.String("version", cfg.App.Version)},
	})
	log.Info("starting impact-hub worker",
		"env", cfg.App.Environment,
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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. NOTIFICATION CONSUMER
	// ─────────────────────────────────────────────────────────────────────────
	notifications := eventhandler.NewNotificationHandler(log)
	if err := notifications.Register(container.Bus); err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, worker only consumes notifications")
	} else {
		sched, err := container.Scheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			if err := sched.Stop(); err != nil {
				log.Error("scheduler stop failed", "error", err)
			}
		}()

		for _, job := range sched.ListJobs() {
			log.Info("job scheduled", "job", job.Name, "every", job.Every.String())
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("impact-hub worker is running")
	<-ctx.Done()

	stats := notifications.Stats()
	log.Info("received shutdown signal, starting graceful shutdown...",
		"level_ups", stats.LevelUps,
		"challenges_completed", stats.ChallengesCompleted,
		"badges_earned", stats.BadgesEarned,
	)

	return nil
}
