package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"discogsography/internal/cache"
	"discogsography/pkg/logger"
)

func newSnapshotTestAPI() *API {
	return &API{snapshots: cache.NewSnapshotStore(28, 100), log: logger.New("api-test")}
}

func TestSaveSnapshot_Success(t *testing.T) {
	a := newSnapshotTestAPI()
	app := fiber.New()
	app.Post("/snapshot", a.SaveSnapshot)

	body := snapshotSaveRequest{
		Nodes:  []cache.SnapshotNode{{ID: "a1", Type: "artist"}, {ID: "r1", Type: "release"}},
		Center: cache.SnapshotNode{ID: "a1", Type: "artist"},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/snapshot", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out snapshotSaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "/snapshot/"+out.Token, out.URL)
	assert.NotEmpty(t, out.ExpiresAt)
}

func TestSaveSnapshot_EmptyNodes(t *testing.T) {
	a := newSnapshotTestAPI()
	app := fiber.New()
	app.Post("/snapshot", a.SaveSnapshot)

	raw, _ := json.Marshal(snapshotSaveRequest{Nodes: []cache.SnapshotNode{}})
	req := httptest.NewRequest(http.MethodPost, "/snapshot", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSaveSnapshot_TooManyNodes(t *testing.T) {
	a := &API{snapshots: cache.NewSnapshotStore(28, 1), log: logger.New("api-test")}
	app := fiber.New()
	app.Post("/snapshot", a.SaveSnapshot)

	raw, _ := json.Marshal(snapshotSaveRequest{
		Nodes: []cache.SnapshotNode{{ID: "a1", Type: "artist"}, {ID: "a2", Type: "artist"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/snapshot", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRestoreSnapshot_RoundTrip(t *testing.T) {
	a := newSnapshotTestAPI()
	app := fiber.New()
	app.Get("/snapshot/:token", a.RestoreSnapshot)

	nodes := []cache.SnapshotNode{{ID: "a1", Type: "artist"}}
	center := cache.SnapshotNode{ID: "a1", Type: "artist"}
	token, _, err := a.snapshots.Save(nodes, center)
	if err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/snapshot/"+token, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out snapshotRestoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.Equal(t, nodes, out.Nodes)
	assert.Equal(t, center, out.Center)
	assert.NotEmpty(t, out.CreatedAt)
}

func TestRestoreSnapshot_NotFound(t *testing.T) {
	a := newSnapshotTestAPI()
	app := fiber.New()
	app.Get("/snapshot/:token", a.RestoreSnapshot)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/snapshot/does-not-exist", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
