package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/apperr"
)

type trendPoint struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

// trendsByKind mirrors categoriesByKind's shape for the single query
// Trends needs per kind: release count grouped by year, reachable from the
// named center node.
var trendsByKind = map[EntityKind]string{
	KindArtist: `MATCH (a:Artist {id: $id})<-[:BY]-(r:Release) WHERE r.year IS NOT NULL RETURN r.year AS year, count(r) AS count ORDER BY year`,
	KindLabel:  `MATCH (l:Label {id: $id})<-[:ON]-(r:Release) WHERE r.year IS NOT NULL RETURN r.year AS year, count(r) AS count ORDER BY year`,
	KindGenre:  `MATCH (g:Genre {name: $name})<-[:IS]-(r:Release) WHERE r.year IS NOT NULL RETURN r.year AS year, count(r) AS count ORDER BY year`,
	KindStyle:  `MATCH (s:Style {name: $name})<-[:IS]-(r:Release) WHERE r.year IS NOT NULL RETURN r.year AS year, count(r) AS count ORDER BY year`,
}

// Trends implements GET /api/trends?name=&type=.
func (a *API) Trends(c *fiber.Ctx) error {
	name := c.Query("name")
	kind := ParseEntityKind(c.Query("type"))
	if name == "" || kind == KindUnknown {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "name and type are required"})
	}

	center, err := a.findCenterByName(c.Context(), kind, name)
	if err != nil {
		return a.respondErr(c, err)
	}
	if center == nil {
		return a.respondErr(c, apperr.NotFound(kind.String()))
	}
	id, _ := center["id"].(string)

	cypher := trendsByKind[kind]
	result, err := a.graph.WithRetry(c.Context(), neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(c.Context(), cypher, map[string]any{"id": id, "name": name})
		if err != nil {
			return nil, err
		}
		points := []trendPoint{}
		for records.Next(c.Context()) {
			rec := records.Record()
			year, _ := rec.Get("year")
			count, _ := rec.Get("count")
			points = append(points, trendPoint{Year: int(toInt64(year)), Count: toInt64(count)})
		}
		return points, records.Err()
	})
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}
	return c.JSON(result.([]trendPoint))
}
