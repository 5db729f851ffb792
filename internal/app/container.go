// Package app wires configuration, storage, cache and the event bus into
// the handlers used by the server and worker binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mysterybag/impact-hub/config"
	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/internal/application/query"
	"github.com/mysterybag/impact-hub/internal/domain/activity"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/internal/infrastructure/messaging"
	"github.com/mysterybag/impact-hub/internal/infrastructure/persistence/memory"
	"github.com/mysterybag/impact-hub/internal/infrastructure/persistence/postgres"
	rediscache "github.com/mysterybag/impact-hub/internal/infrastructure/persistence/redis"
	"github.com/mysterybag/impact-hub/internal/infrastructure/scheduler"
	"github.com/mysterybag/impact-hub/internal/infrastructure/scheduler/jobs"
	"github.com/mysterybag/impact-hub/internal/interface/http/handlers"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// EventBus is the notification bus shared by the command side and any
// subscribers.
type EventBus interface {
	Publish(event shared.Event) error
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error
	SubscribeAll(handler shared.EventHandler) error
	Close() error
}

// Container holds every long-lived dependency of a running process.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Calendar timeutil.Calendar

	UnitOfWork   command.UnitOfWork
	Progress     progress.Repository
	Challenges   challenge.Repository
	Awards       badge.AwardRepository
	Catalog      badge.CatalogRepository
	Activity     activity.Repository
	Leaderboards leaderboard.Repository

	// LeaderboardCache is nil when Redis is disabled or unreachable.
	LeaderboardCache leaderboard.Cache

	Bus    EventBus
	Health *handlers.CompositeHealthChecker

	closers []func()
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILD
// ══════════════════════════════════════════════════════════════════════════════

// Build connects storage, the optional cache and the event bus. Close must
// be called on the returned container, including after a partial failure.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Calendar: timeutil.NewCalendar(cfg.App.Location),
		Health:   handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	if cfg.UsesPostgres() {
		if err := c.connectPostgres(ctx); err != nil {
			c.Close()
			return nil, err
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		c.useMemory()
	}

	var cache *rediscache.Cache
	if cfg.Redis.Enabled {
		cache = c.connectRedis(ctx)
	}

	if err := c.buildEventBus(cache); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) connectPostgres(ctx context.Context) error {
	c.Logger.Info("connecting to database...")

	pool := postgres.DefaultPoolConfig()
	if c.Config.Database.MaxConns > 0 {
		pool.MaxConns = c.Config.Database.MaxConns
	}
	if c.Config.Database.MinConns > 0 {
		pool.MinConns = c.Config.Database.MinConns
	}
	if c.Config.Database.ConnMaxLifetime > 0 {
		pool.MaxConnLifetime = c.Config.Database.ConnMaxLifetime
	}
	if c.Config.Database.ConnMaxIdleTime > 0 {
		pool.MaxConnIdleTime = c.Config.Database.ConnMaxIdleTime
	}

	conn, err := postgres.NewConnection(ctx, c.Config.Database.URL, pool)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.closers = append(c.closers, func() {
		c.Logger.Info("closing database connection...")
		conn.Close()
	})
	c.Health.AddCheck("database", handlers.NewDatabaseCheck(conn))

	if c.Config.Database.RunMigrations {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		c.Logger.Info("database schema is up to date", "applied", applied)
	}

	catalog := postgres.NewCatalogRepository(conn)
	if err := catalog.Seed(ctx, badge.DefaultCatalog()); err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}

	c.UnitOfWork = postgres.NewTransactor(conn, c.Calendar)
	c.Progress = postgres.NewProgressRepository(conn)
	c.Challenges = postgres.NewChallengeRepository(conn, c.Calendar)
	c.Awards = postgres.NewAwardRepository(conn)
	c.Catalog = catalog
	c.Activity = postgres.NewActivityRepository(conn)
	c.Leaderboards = postgres.NewLeaderboardRepository(conn, c.Calendar)

	c.Logger.Info("database connection established")
	return nil
}

func (c *Container) useMemory() {
	db := memory.NewDB(badge.DefaultCatalog())

	c.UnitOfWork = db
	c.Progress = db.Progress()
	c.Challenges = db.Challenges()
	c.Awards = db.Awards()
	c.Catalog = db.Catalog()
	c.Activity = db.Activity()
	c.Leaderboards = db.Leaderboards()
}

// connectRedis returns nil when Redis cannot be reached; the service then
// runs without the leaderboard cache and with a process-local bus.
func (c *Container) connectRedis(ctx context.Context) *rediscache.Cache {
	c.Logger.Info("connecting to Redis...", "addr", c.Config.Redis.Addr)

	redisCfg := rediscache.DefaultConfig()
	redisCfg.Addr = c.Config.Redis.Addr
	redisCfg.Password = c.Config.Redis.Password
	redisCfg.DB = c.Config.Redis.DB
	if c.Config.Redis.PoolSize > 0 {
		redisCfg.PoolSize = c.Config.Redis.PoolSize
	}
	if c.Config.Redis.DialTimeout > 0 {
		redisCfg.DialTimeout = c.Config.Redis.DialTimeout
	}
	if c.Config.Redis.ReadTimeout > 0 {
		redisCfg.ReadTimeout = c.Config.Redis.ReadTimeout
	}
	if c.Config.Redis.WriteTimeout > 0 {
		redisCfg.WriteTimeout = c.Config.Redis.WriteTimeout
	}
	if c.Config.Redis.LeaderboardCacheTTL > 0 {
		redisCfg.LeaderboardTTL = c.Config.Redis.LeaderboardCacheTTL
	}

	cache, err := rediscache.NewCache(ctx, redisCfg)
	if err != nil {
		c.Logger.Warn("failed to connect to Redis, caching disabled", "error", err)
		return nil
	}
	c.closers = append(c.closers, func() {
		c.Logger.Info("closing Redis connection...")
		_ = cache.Close()
	})
	c.Health.AddCheck("cache", handlers.NewCacheCheck(cache))

	c.LeaderboardCache = rediscache.NewLeaderboardCache(cache, c.Calendar, nil)
	c.Logger.Info("Redis connection established")
	return cache
}

func (c *Container) buildEventBus(cache *rediscache.Cache) error {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.AsyncMode = true
	local.Logger = c.Logger

	if cache == nil {
		c.Bus = messaging.NewInMemoryEventBus(local)
	} else {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Broker:         messaging.NewRedisBroker(cache),
			ChannelName:    cache.NotificationChannel(),
			LocalBusConfig: local,
			Logger:         c.Logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		c.Bus = bus
	}

	// Registered after the stores so the bus is drained before they close.
	bus := c.Bus
	c.closers = append(c.closers, func() {
		c.Logger.Info("closing event bus...")
		_ = bus.Close()
	})
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// CompleteOrderHandler builds the order-completion pipeline.
func (c *Container) CompleteOrderHandler() *command.CompleteOrderHandler {
	return command.NewCompleteOrderHandler(c.UnitOfWork, c.Catalog, c.Bus, command.CompleteOrderHandlerConfig{
		Challenges:     challenge.DefaultDefinitions(),
		Calendar:       c.Calendar,
		MaxAttempts:    c.Config.Engine.ApplyMaxAttempts,
		StorageTimeout: c.Config.Engine.StorageTimeout,
		Logger:         c.Logger,
	})
}

// LeaderboardSource compiles standings from the live tables.
func (c *Container) LeaderboardSource() leaderboard.Source {
	return leaderboard.NewRepositorySource(c.Progress, c.Challenges, c.Calendar)
}

// Queries holds the read-side handlers.
type Queries struct {
	Progress         *query.GetProgressHandler
	Badges           *query.GetBadgesHandler
	CurrentChallenge *query.GetCurrentChallengeHandler
	Leaderboard      *query.GetLeaderboardHandler
}

// QueryHandlers builds the read-side handlers.
func (c *Container) QueryHandlers() Queries {
	return Queries{
		Progress:         query.NewGetProgressHandler(c.Progress),
		Badges:           query.NewGetBadgesHandler(c.Awards, c.Catalog),
		CurrentChallenge: query.NewGetCurrentChallengeHandler(c.Challenges, challenge.DefaultDefinitions(), c.Calendar),
		Leaderboard:      query.NewGetLeaderboardHandler(c.LeaderboardCache, c.Leaderboards, c.LeaderboardSource(), c.Calendar, c.Logger),
	}
}

// Scheduler registers the background jobs on a new scheduler.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	s, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:     c.Logger,
		Timezone:   c.Calendar.Location(),
		RunOnStart: true,
	})
	if err != nil {
		return nil, err
	}

	rebuild := jobs.NewRebuildLeaderboardJob(
		c.LeaderboardSource(),
		c.Leaderboards,
		c.LeaderboardCache,
		c.Calendar,
		c.Logger,
		jobs.RebuildLeaderboardConfig{Timeout: c.Config.Scheduler.JobTimeout},
	)
	if err := s.Register(rebuild, c.Config.Scheduler.LeaderboardInterval); err != nil {
		return nil, err
	}

	prune := jobs.NewPruneActivityJob(c.Activity, c.Config.Engine.ActivityRetention, c.Logger)
	if err := s.Register(prune, c.Config.Scheduler.PruneInterval); err != nil {
		return nil, err
	}

	return s, nil
}
