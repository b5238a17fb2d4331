package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"discogsography/internal/dbpool"
	"discogsography/internal/graphdriver"
	"discogsography/internal/sync"
	"discogsography/pkg/logger"
)

func setupSyncTest(t *testing.T) (*fiber.App, *API, sqlmock.Sqlmock, uuid.UUID) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	pool := &dbpool.Pool{DB: gormDB}
	a := &API{
		pool:         pool,
		syncEngine:   sync.New(pool, &graphdriver.Driver{}, nil, nil),
		runningSyncs: make(map[uuid.UUID]struct{}),
		log:          logger.New("api-test"),
	}

	userID := uuid.New()
	app := fiber.New()
	withUser := func(handler fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			c.Locals("userID", userID)
			return handler(c)
		}
	}
	app.Post("/sync", withUser(a.TriggerSync))
	app.Get("/sync/status", withUser(a.SyncStatus))

	return app, a, mock, userID
}

// TestTriggerSync_AlreadyRunning covers spec.md §8 S4: a second trigger
// while one is already in flight for the same user is rejected with 202
// and the existing sync's id, not a second sync_history row.
func TestTriggerSync_AlreadyRunning(t *testing.T) {
	app, a, mock, userID := setupSyncTest(t)
	a.runningSyncs[userID] = struct{}{}

	existingSyncID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "sync_history".*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}).
			AddRow(existingSyncID, userID, "running"))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestTriggerSync_StartsNewSync covers the happy path: no cooldown store
// configured, no sync already running, a sync_history row is created and
// the response reports it as started.
func TestTriggerSync_StartsNewSync(t *testing.T) {
	app, _, mock, _ := setupSyncTest(t)

	syncID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "sync_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(syncID))
	mock.ExpectCommit()

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

// TestSyncStatus_NotFound covers a user who has never synced.
func TestSyncStatus_NotFound(t *testing.T) {
	app, _, mock, _ := setupSyncTest(t)

	mock.ExpectQuery(`SELECT .* FROM "sync_history".*`).
		WillReturnError(gorm.ErrRecordNotFound)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSyncStatus_Found returns the most recent sync_history row verbatim.
func TestSyncStatus_Found(t *testing.T) {
	app, _, mock, _ := setupSyncTest(t)

	syncID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "sync_history".*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "items_synced"}).
			AddRow(syncID, "completed", 42))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
