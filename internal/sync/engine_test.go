package sync

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"discogsography/internal/dbpool"
	"discogsography/pkg/logger"
)

// setupTestEngine mirrors the teacher's setupTestDB helper in
// services/transaction_test.go: a real *gorm.DB backed by sqlmock so
// queries exercise the actual GORM code paths without a live Postgres.
func setupTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	engine := &Engine{
		pool: &dbpool.Pool{DB: gormDB},
		log:  logger.New("sync-test"),
	}
	return engine, mock
}

// TestLoadCredentials_MissingOAuthToken covers spec.md §8 invariant 3: a
// user with no linked Discogs token fails fast without touching app_config.
func TestLoadCredentials_MissingOAuthToken(t *testing.T) {
	engine, mock := setupTestEngine(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "oauth_tokens".*`).
		WillReturnError(gorm.ErrRecordNotFound)

	_, _, _, err := engine.loadCredentials(context.Background(), userID)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLoadCredentials_MissingConsumerKey covers the case where a token is
// linked but the deployment never configured its Discogs app credentials.
func TestLoadCredentials_MissingConsumerKey(t *testing.T) {
	engine, mock := setupTestEngine(t)
	userID := uuid.New()

	tokenRows := sqlmock.NewRows([]string{"id", "user_id", "provider", "access_token", "access_secret", "provider_username"}).
		AddRow(uuid.New(), userID, "discogs", "tok", "sec", "someuser")
	mock.ExpectQuery(`SELECT .* FROM "oauth_tokens".*`).WillReturnRows(tokenRows)

	mock.ExpectQuery(`SELECT .* FROM "app_config".*`).
		WillReturnError(gorm.ErrRecordNotFound)

	_, _, _, err := engine.loadCredentials(context.Background(), userID)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRunFullSync_NoCredentials_MarksHistoryFailed asserts that a sync run
// for a user with no linked Discogs account writes exactly one failed
// sync_history row and nothing else, per spec.md §8 invariant 3 ("a failed
// sync leaves a history row with a non-null error_message and no other
// writes").
func TestRunFullSync_NoCredentials_MarksHistoryFailed(t *testing.T) {
	engine, mock := setupTestEngine(t)
	userID := uuid.New()
	syncID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "oauth_tokens".*`).
		WillReturnError(gorm.ErrRecordNotFound)

	historyRows := sqlmock.NewRows([]string{"id", "user_id", "sync_type", "status", "items_synced"}).
		AddRow(syncID, userID, "full", "running", 0)
	mock.ExpectQuery(`SELECT .* FROM "sync_history".*`).WillReturnRows(historyRows)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "sync_history".*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	engine.RunFullSync(context.Background(), userID, syncID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPublishProgress_NilEventBus confirms the no-op guard: a deployment
// without Valkey wired still runs syncs, just without progress events.
func TestPublishProgress_NilEventBus(t *testing.T) {
	engine := &Engine{log: logger.New("sync-test")}
	assert.NotPanics(t, func() {
		engine.publishProgress(uuid.New(), "collection", 10)
	})
}
