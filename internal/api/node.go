package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"discogsography/internal/apperr"
	"discogsography/internal/catalog"
	"discogsography/internal/models"
)

// Node implements GET /api/node/{id}?type=, returning the full JSON
// document the Table Sink wrote for (type, id) — spec.md §4.E's "one rich
// record per node kind", read straight from the table that stores the
// complete upstream document rather than re-deriving it from the graph.
func (a *API) Node(c *fiber.Ctx) error {
	id := c.Params("id")
	kind := catalog.Kind(c.Query("type"))
	if id == "" || !kind.Valid() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "id and a valid type are required"})
	}

	record, err := a.fetchCatalogRecord(c, kind, id)
	if err != nil {
		return a.respondErr(c, err)
	}
	return c.JSON(fiber.Map{"id": record.ID, "data": record.Data, "hash": record.Hash})
}

func (a *API) fetchCatalogRecord(c *fiber.Ctx, kind catalog.Kind, id string) (*models.CatalogRecord, error) {
	var record models.CatalogRecord
	tableName := tableNameForKind(kind)

	err := a.pool.DB.WithContext(c.Context()).Table(tableName).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(string(kind))
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &record, nil
}

func tableNameForKind(kind catalog.Kind) string {
	switch kind {
	case catalog.KindArtist:
		return "artists"
	case catalog.KindLabel:
		return "labels"
	case catalog.KindMaster:
		return "masters"
	case catalog.KindRelease:
		return "releases"
	default:
		return ""
	}
}
