// Package app composes every dependency the API process needs into a
// single struct, grounded on the teacher's internal/app.App: one New()
// that wires database, cache, event bus and domain services in order, and
// one Close() that unwinds them.
package app

import (
	"context"

	"gorm.io/gorm/clause"

	"discogsography/internal/api"
	"discogsography/internal/bus"
	"discogsography/internal/cache"
	"discogsography/internal/config"
	"discogsography/internal/dbpool"
	"discogsography/internal/discogsclient"
	"discogsography/internal/events"
	"discogsography/internal/graphdriver"
	"discogsography/internal/jobs"
	"discogsography/internal/models"
	"discogsography/internal/sync"
	"discogsography/pkg/logger"
)

// App holds every long-lived dependency of the API process.
type App struct {
	Config config.Config

	DB       *dbpool.Pool
	Graph    *graphdriver.Driver
	Bus      *bus.Bus
	EventBus *events.EventBus

	SyncEngine *sync.Engine
	API        *api.API
	Scheduler  *jobs.Scheduler

	log logger.Logger
}

// New wires the full dependency graph for the API process: Postgres,
// Neo4j, the Discogs HTTP client, the sync engine and the Read API. Valkey
// (cache.Store for the sync cooldown and cache invalidation, plus the
// events bus; the autocomplete cache is in-process) is optional per
// spec.md §6's REDIS_URL — its absence degrades gracefully rather than
// failing startup.
func New() (*App, error) {
	log := logger.New("app").Function("New")

	cfg, err := config.New()
	if err != nil {
		return nil, log.Err("failed to initialize config", err)
	}

	pool, err := dbpool.New(cfg)
	if err != nil {
		return nil, log.Err("failed to create db pool", err)
	}

	graph, err := graphdriver.New(cfg)
	if err != nil {
		return nil, log.Err("failed to create graph driver", err)
	}
	if err := graphdriver.Bootstrap(context.Background(), graph); err != nil {
		return nil, log.Err("failed to bootstrap graph indexes", err)
	}

	if err := seedDiscogsAppConfig(pool, cfg); err != nil {
		return nil, log.Err("failed to seed discogs app config", err)
	}

	discogs := discogsclient.New(cfg.DiscogsBaseURL, cfg.DiscogsUserAgent)

	var eventBus *events.EventBus
	var cooldownStore *cache.Store
	if cfg.RedisURL != "" {
		valkeyClient, err := cache.NewValkeyClient(cfg.RedisURL)
		if err != nil {
			return nil, log.Err("failed to create valkey client", err)
		}
		eventBus = events.New(valkeyClient)
		cooldownStore = cache.NewStore(valkeyClient)
	} else {
		log.Warn("REDIS_URL not set, sync progress events and cross-process cooldown disabled")
	}

	syncEngine := sync.New(pool, graph, discogs, eventBus)

	apiService := api.New(pool, graph, syncEngine, api.Config{
		JWTSecret:           cfg.JWTSecret,
		JWTTokenTTLSeconds:  cfg.JWTTokenTTLS,
		SyncCooldownSeconds: cfg.SyncCooldownSeconds,
		CacheWebhookSecret:  cfg.CacheWebhookSecret,
		SnapshotTTLDays:     cfg.SnapshotTTLDays,
		SnapshotMaxNodes:    cfg.SnapshotMaxNodes,
	})
	if cooldownStore != nil {
		apiService.SetCooldownStore(cooldownStore)
	}

	scheduler := jobs.New()
	if err := scheduler.AddJob(jobs.NewStaleSyncSweepJob(pool)); err != nil {
		return nil, log.Err("failed to register stale sync sweep job", err)
	}
	if cfg.PeriodicCheckDays > 0 {
		if err := scheduler.AddJob(jobs.NewPeriodicResyncJob(pool, syncEngine, cfg.PeriodicCheckDays)); err != nil {
			return nil, log.Err("failed to register periodic resync job", err)
		}
	} else {
		log.Info("PERIODIC_CHECK_DAYS not set, automatic resync disabled")
	}
	scheduler.Start()

	return &App{
		Config:     cfg,
		DB:         pool,
		Graph:      graph,
		EventBus:   eventBus,
		SyncEngine: syncEngine,
		API:        apiService,
		Scheduler:  scheduler,
		log:        log,
	}, nil
}

// seedDiscogsAppConfig upserts the deployment's Discogs app credentials
// from the environment into app_config, per spec.md §4.D.1's "AppConfig
// row per key... written once at deployment": idempotent so every
// restart reconciles app_config with whatever DISCOGS_CONSUMER_KEY/SECRET
// is currently configured, without requiring a separate seed step. Empty
// env values are left alone rather than overwriting a previously-seeded
// row with blanks.
func seedDiscogsAppConfig(pool *dbpool.Pool, cfg config.Config) error {
	rows := []models.AppConfig{}
	if cfg.DiscogsConsumerKey != "" {
		rows = append(rows, models.AppConfig{Key: models.AppConfigDiscogsConsumerKey, Value: cfg.DiscogsConsumerKey})
	}
	if cfg.DiscogsConsumerSecret != "" {
		rows = append(rows, models.AppConfig{Key: models.AppConfigDiscogsConsumerSecret, Value: cfg.DiscogsConsumerSecret})
	}
	if len(rows) == 0 {
		return nil
	}

	return pool.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}

// Close unwinds every dependency App.New opened, collecting the last
// non-nil error rather than stopping at the first so every resource gets
// a shot at a clean shutdown.
func (a *App) Close() (err error) {
	if a.Scheduler != nil {
		if closeErr := a.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if closeErr := a.Graph.Close(context.Background()); closeErr != nil {
		err = closeErr
	}

	if closeErr := a.DB.Close(); closeErr != nil {
		err = closeErr
	}

	return err
}
