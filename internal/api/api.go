// Package api implements the Read API surface (spec.md §4.E): autocomplete,
// explore/expand/node/trends graph reads, auth-gated user views, the sync
// trigger/status endpoints and the cache-invalidation webhook. Grounded on
// the teacher's internal/handlers package shape (one struct per family,
// a Register() that mounts routes on a fiber.Router) collapsed into a
// single API struct since this domain's handler families are small enough
// that per-family structs would only add indirection.
package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"discogsography/internal/apperr"
	"discogsography/internal/cache"
	"discogsography/internal/dbpool"
	"discogsography/internal/graphdriver"
	"discogsography/internal/middleware"
	"discogsography/internal/sync"
	"discogsography/pkg/logger"
)

// API holds every dependency the Read API's handlers need. It is built
// once at startup and threaded through fiber's router closures, matching
// spec.md §9's "module-global singletons become explicit dependencies"
// design note.
type API struct {
	pool         *dbpool.Pool
	graph        *graphdriver.Driver
	autocomplete *cache.AutocompleteCache
	cooldown     *cache.Store
	snapshots    *cache.SnapshotStore
	syncEngine   *sync.Engine
	middleware   middleware.Middleware

	jwtSecret          string
	jwtTokenTTLSeconds int
	syncCooldown       int
	cacheWebhookSecret string

	runningSyncsMu sync.Mutex
	runningSyncs   map[uuid.UUID]struct{}

	log logger.Logger
}

// Config bundles the per-process settings handlers need that aren't
// themselves a driver or store (secrets, TTLs).
type Config struct {
	JWTSecret          string
	JWTTokenTTLSeconds int
	SyncCooldownSeconds int
	CacheWebhookSecret string
	SnapshotTTLDays    int
	SnapshotMaxNodes   int
}

func New(pool *dbpool.Pool, graph *graphdriver.Driver, syncEngine *sync.Engine, cfg Config) *API {
	return &API{
		pool:                pool,
		graph:               graph,
		autocomplete:        cache.NewAutocompleteCache(),
		snapshots:           cache.NewSnapshotStore(cfg.SnapshotTTLDays, cfg.SnapshotMaxNodes),
		syncEngine:          syncEngine,
		middleware:          middleware.New(cfg.JWTSecret),
		jwtSecret:           cfg.JWTSecret,
		jwtTokenTTLSeconds:  cfg.JWTTokenTTLSeconds,
		syncCooldown:        cfg.SyncCooldownSeconds,
		cacheWebhookSecret:  cfg.CacheWebhookSecret,
		runningSyncs:        make(map[uuid.UUID]struct{}),
		log:                 logger.New("api"),
	}
}

// SetCooldownStore wires the Valkey-backed cooldown store in separately
// since it is optional: spec.md §6 lists REDIS_URL as an optional env var,
// and a deployment without it simply never enforces a cross-process
// cooldown (the in-process runningSyncs map still prevents true overlap).
func (a *API) SetCooldownStore(store *cache.Store) {
	a.cooldown = store
}

// Router mounts every route family on app, following the teacher's
// handlers.Router fan-out shape.
func (a *API) Router(app *fiber.App) {
	apiGroup := app.Group("/api")

	apiGroup.Get("/autocomplete", a.Autocomplete)
	apiGroup.Get("/explore", a.Explore)
	apiGroup.Get("/expand", a.Expand)
	apiGroup.Get("/node/:id", a.Node)
	apiGroup.Get("/trends", a.Trends)

	apiGroup.Post("/snapshot", a.SaveSnapshot)
	apiGroup.Get("/snapshot/:token", a.RestoreSnapshot)

	apiGroup.Post("/cache/invalidate", a.InvalidateCache)

	authGroup := apiGroup.Group("/auth")
	authGroup.Post("/register", a.Register)
	authGroup.Post("/login", a.Login)
	authGroup.Get("/me", a.middleware.RequireAuth(), a.Me)

	apiGroup.Get("/collection", a.middleware.RequireAuth(), a.Collection)
	apiGroup.Get("/wantlist", a.middleware.RequireAuth(), a.Wantlist)
	apiGroup.Get("/collection/stats", a.middleware.RequireAuth(), a.CollectionStats)
	apiGroup.Get("/recommendations", a.middleware.RequireAuth(), a.Recommendations)
	apiGroup.Get("/status", a.middleware.OptionalAuth(), a.Status)

	apiGroup.Post("/sync", a.middleware.RequireAuth(), a.TriggerSync)
	apiGroup.Get("/sync/status", a.middleware.RequireAuth(), a.SyncStatus)
}

// respondErr translates an apperr.AppError into its HTTP status and body;
// anything else is an unhandled exception per spec.md §7's propagation
// policy, answered with 500 and a correlation id, never a stack trace.
func (a *API) respondErr(c *fiber.Ctx, err error) error {
	if ae := apperr.As(err); ae != nil {
		if ae.Cause != nil {
			a.log.Er(ae.Message, ae.Cause)
		}
		return c.Status(ae.HTTPStatus).JSON(ae)
	}

	correlationID := newCorrelationID()
	a.log.Er("unhandled error", err, "correlationID", correlationID)
	c.Set("X-Correlation-ID", correlationID)
	return c.Status(fiber.StatusInternalServerError).JSON(apperr.WithCorrelationID(correlationID))
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
