package api

import (
	"bytes"
	"encoding/json"
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
	"discogsography/pkg/logger"
)

// setupAuthTest mirrors internal/sync/engine_test.go's sqlmock pattern: a
// real *gorm.DB over a mocked connection, wired into a minimal API struct
// that only needs the fields auth.go touches.
func setupAuthTest(t *testing.T) (*fiber.App, *API, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	a := &API{
		pool:               &dbpool.Pool{DB: gormDB},
		jwtSecret:          "test-secret",
		jwtTokenTTLSeconds: 3600,
		log:                logger.New("api-test"),
	}

	app := fiber.New()
	app.Post("/register", a.Register)
	app.Post("/login", a.Login)

	return app, a, mock
}

func doJSONPost(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// TestRegister_Success covers spec.md §8 S1: a new email registers and
// receives a 201 with the created user's id.
func TestRegister_Success(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	mock.ExpectQuery(`SELECT .* FROM "users".*`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	resp := doJSONPost(t, app, "/register", registerRequest{Email: "new@example.com", Password: "hunter2hunter2"})

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRegister_DuplicateEmail covers spec.md §8 S2: registering an email
// already on file returns 409, not 500 or a silent overwrite.
func TestRegister_DuplicateEmail(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	mock.ExpectQuery(`SELECT .* FROM "users".*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(uuid.New(), "dup@example.com"))

	resp := doJSONPost(t, app, "/register", registerRequest{Email: "dup@example.com", Password: "hunter2hunter2"})

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRegister_MissingFields covers the 422 validation branch without
// touching the database at all.
func TestRegister_MissingFields(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	resp := doJSONPost(t, app, "/register", registerRequest{Email: "", Password: ""})

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLogin_UnknownEmail covers the 401 branch for an email with no
// matching user row.
func TestLogin_UnknownEmail(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	mock.ExpectQuery(`SELECT .* FROM "users".*`).
		WillReturnError(gorm.ErrRecordNotFound)

	resp := doJSONPost(t, app, "/login", loginRequest{Email: "ghost@example.com", Password: "whatever123"})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLogin_WrongPassword covers the 401 branch for a known email with a
// password that doesn't verify against the stored hash.
func TestLogin_WrongPassword(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	hashed, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	mock.ExpectQuery(`SELECT .* FROM "users".*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "is_active"}).
			AddRow(uuid.New(), "user@example.com", hashed, true))

	resp := doJSONPost(t, app, "/login", loginRequest{Email: "user@example.com", Password: "wrong-password"})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLogin_Success covers spec.md §8 S1's happy path: a correct password
// issues a bearer token.
func TestLogin_Success(t *testing.T) {
	app, _, mock := setupAuthTest(t)

	hashed, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	mock.ExpectQuery(`SELECT .* FROM "users".*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "is_active"}).
			AddRow(uuid.New(), "user@example.com", hashed, true))

	resp := doJSONPost(t, app, "/login", loginRequest{Email: "user@example.com", Password: "correct-horse-battery"})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
