package jobs

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"discogsography/internal/dbpool"
)

// setupTestPool mirrors the sqlmock pattern used throughout this module's
// other DB-backed tests (internal/sync/engine_test.go, in turn grounded on
// the teacher's services/transaction_test.go).
func setupTestPool(t *testing.T) (*dbpool.Pool, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	return &dbpool.Pool{DB: gormDB}, mock
}

func TestStaleSyncSweepJob_Execute(t *testing.T) {
	pool, mock := setupTestPool(t)
	job := NewStaleSyncSweepJob(pool)

	mock.ExpectExec(`UPDATE "sync_history" SET`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := job.Execute(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "stale-sync-sweep", job.Name())
	assert.Equal(t, Hourly, job.Schedule())
}

// TestPeriodicResyncJob_NoCandidates covers the common case: nobody is due,
// so Execute issues its lookup query and returns without touching
// sync_history at all.
func TestPeriodicResyncJob_NoCandidates(t *testing.T) {
	pool, mock := setupTestPool(t)
	job := NewPeriodicResyncJob(pool, nil, 14)

	mock.ExpectQuery(`SELECT .* FROM "oauth_tokens".*`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	err := job.Execute(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "periodic-resync", job.Name())
	assert.Equal(t, Daily, job.Schedule())
}

// TestPeriodicResyncJob_Disabled confirms a zero/negative PERIODIC_CHECK_DAYS
// short-circuits before any query runs, matching spec.md §6's "optional"
// framing for the setting.
func TestPeriodicResyncJob_Disabled(t *testing.T) {
	pool, mock := setupTestPool(t)
	job := NewPeriodicResyncJob(pool, nil, 0)

	err := job.Execute(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodicResyncJob_CandidateLookupError(t *testing.T) {
	pool, mock := setupTestPool(t)
	job := NewPeriodicResyncJob(pool, nil, 14)

	mock.ExpectQuery(`SELECT .* FROM "oauth_tokens".*`).
		WillReturnError(gorm.ErrInvalidDB)

	err := job.Execute(context.Background())

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
