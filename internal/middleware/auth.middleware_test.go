package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"discogsography/internal/jwtauth"
)

func newRequest(method, path, authHeader string) *http.Request {
	req, _ := http.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req
}

const testSecret = "test-secret"

func newTestApp(m Middleware, required bool) *fiber.App {
	app := fiber.New()
	gate := m.OptionalAuth()
	if required {
		gate = m.RequireAuth()
	}
	app.Get("/protected", gate, func(c *fiber.Ctx) error {
		if userID, ok := UserID(c); ok {
			return c.JSON(fiber.Map{"userID": userID.String()})
		}
		return c.JSON(fiber.Map{"userID": nil})
	})
	return app
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	m := New(testSecret)
	app := newTestApp(m, true)

	req := newRequest("GET", "/protected", "")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireAuth_AcceptsValidToken(t *testing.T) {
	m := New(testSecret)
	app := newTestApp(m, true)

	token, err := jwtauth.Issue("11111111-1111-1111-1111-111111111111", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := newRequest("GET", "/protected", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestOptionalAuth_ProceedsWithoutToken(t *testing.T) {
	m := New(testSecret)
	app := newTestApp(m, false)

	req := newRequest("GET", "/protected", "")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
