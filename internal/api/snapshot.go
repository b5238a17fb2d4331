package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"discogsography/internal/cache"
)

// snapshotSaveRequest is the save-a-layout body, mirroring the
// original_source explore service's SnapshotRequest: a center node plus
// every node currently visible in the caller's explored neighborhood.
type snapshotSaveRequest struct {
	Nodes  []cache.SnapshotNode `json:"nodes"`
	Center cache.SnapshotNode   `json:"center"`
}

type snapshotSaveResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

type snapshotRestoreResponse struct {
	Nodes     []cache.SnapshotNode `json:"nodes"`
	Center    cache.SnapshotNode   `json:"center"`
	CreatedAt string               `json:"created_at"`
}

// SaveSnapshot implements POST /api/snapshot: capture the caller's current
// graph-exploration layout behind a shareable token.
func (a *API) SaveSnapshot(c *fiber.Ctx) error {
	var body snapshotSaveRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request body"})
	}

	if len(body.Nodes) == 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "nodes must not be empty"})
	}
	if max := a.snapshots.MaxNodes(); len(body.Nodes) > max {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": fmt.Sprintf("too many nodes: maximum is %d", max)})
	}

	token, expiresAt, err := a.snapshots.Save(body.Nodes, body.Center)
	if err != nil {
		return a.respondErr(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(snapshotSaveResponse{
		Token:     token,
		URL:       "/snapshot/" + token,
		ExpiresAt: expiresAt.Format(timeRFC3339),
	})
}

// RestoreSnapshot implements GET /api/snapshot/:token: restore a
// previously saved layout, or 404 if the token is unknown or expired.
func (a *API) RestoreSnapshot(c *fiber.Ctx) error {
	token := c.Params("token")

	entry, ok := a.snapshots.Load(token)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "snapshot not found or expired"})
	}

	return c.JSON(snapshotRestoreResponse{
		Nodes:     entry.Nodes,
		Center:    entry.Center,
		CreatedAt: entry.CreatedAt.Format(timeRFC3339),
	})
}

const timeRFC3339 = "2006-01-02T15:04:05.999999Z07:00"
