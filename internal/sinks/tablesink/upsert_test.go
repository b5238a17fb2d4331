package tablesink

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"discogsography/internal/catalog"
	"discogsography/internal/dbpool"
)

func TestTableName(t *testing.T) {
	cases := map[catalog.Kind]string{
		catalog.KindArtist:  "artists",
		catalog.KindLabel:   "labels",
		catalog.KindMaster:  "masters",
		catalog.KindRelease: "releases",
	}
	for kind, want := range cases {
		if got := tableName(kind); got != want {
			t.Errorf("tableName(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestPeekID(t *testing.T) {
	id, err := peekID([]byte(`{"id": "456", "title": "Selected Ambient Works"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "456" {
		t.Errorf("got id %q, want 456", id)
	}
}

func TestPeekID_MissingID(t *testing.T) {
	if _, err := peekID([]byte(`{"title": "no id"}`)); err == nil {
		t.Fatal("expected error for missing id, got nil")
	}
}

func TestIsDataError(t *testing.T) {
	if !isDataError(errMissingID) {
		t.Error("expected errMissingID to be classified as a data error")
	}
}

// setupUpsertTestPool mirrors internal/sync/engine_test.go's sqlmock
// pattern: a real *gorm.DB over a mocked connection.
func setupUpsertTestPool(t *testing.T) (*dbpool.Pool, sqlmock.Sqlmock) {
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

// TestReadHash_MissingRow covers the common case for every first-time
// write: no row exists yet, so Scan returns sql.ErrNoRows (Row()/Scan
// bypasses GORM's error translation, unlike First/Take) and ReadHash must
// still report it as "no hash yet" rather than a real error.
func TestReadHash_MissingRow(t *testing.T) {
	pool, mock := setupUpsertTestPool(t)

	mock.ExpectQuery(`SELECT "hash" FROM "artists".*`).
		WillReturnError(sql.ErrNoRows)

	hash, err := ReadHash(context.Background(), pool, catalog.KindArtist, "123")

	assert.NoError(t, err)
	assert.Equal(t, "", hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestReadHash_ExistingRow covers the change-detection case: a prior hash
// is returned so the caller can skip an unchanged record.
func TestReadHash_ExistingRow(t *testing.T) {
	pool, mock := setupUpsertTestPool(t)

	mock.ExpectQuery(`SELECT "hash" FROM "labels".*`).
		WillReturnRows(sqlmock.NewRows([]string{"hash"}).AddRow("abc123"))

	hash, err := ReadHash(context.Background(), pool, catalog.KindLabel, "456")

	assert.NoError(t, err)
	assert.Equal(t, "abc123", hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUpsert_Success covers the ON CONFLICT write path.
func TestUpsert_Success(t *testing.T) {
	pool, mock := setupUpsertTestPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "masters"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := Upsert(context.Background(), pool, catalog.KindMaster, "789", []byte(`{"id":"789"}`), "deadbeef")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
