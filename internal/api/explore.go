package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/apperr"
)

// categoryDef pairs one "category" child-list Cypher query with the
// matching count-only query, both parameterized on the center node's id
// and name. Every query is a fixed pattern of one or two hops; none uses a
// variable-length relationship, so no traversal is recursive.
type categoryDef struct {
	children string
	count    string
}

// categoriesByKind is the fixed set of synthetic "category" children
// spec.md §4.E names for artist and genre explicitly ("releases/labels/
// aliases for artist; releases/artists/labels/styles for genre") and
// leaves implicit for label/style; this table extends the same shape to
// those two kinds by the natural graph-edge analogue (label -> its
// releases/artists/sublabels, style -> its releases/artists/labels).
var categoriesByKind = map[EntityKind]map[string]categoryDef{
	KindArtist: {
		"releases": {
			children: `MATCH (a:Artist {id: $id})<-[:BY]-(r:Release) RETURN r.id AS id, r.title AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (a:Artist {id: $id})<-[:BY]-(r:Release) RETURN count(r) AS total`,
		},
		"labels": {
			children: `MATCH (a:Artist {id: $id})<-[:BY]-(:Release)-[:ON]->(l:Label) RETURN DISTINCT l.id AS id, l.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (a:Artist {id: $id})<-[:BY]-(:Release)-[:ON]->(l:Label) RETURN count(DISTINCT l) AS total`,
		},
		"aliases": {
			children: `MATCH (a:Artist {id: $id})-[:ALIAS_OF]-(alias:Artist) RETURN DISTINCT alias.id AS id, alias.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (a:Artist {id: $id})-[:ALIAS_OF]-(alias:Artist) RETURN count(DISTINCT alias) AS total`,
		},
	},
	KindGenre: {
		"releases": {
			children: `MATCH (g:Genre {name: $name})<-[:IS]-(r:Release) RETURN r.id AS id, r.title AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (g:Genre {name: $name})<-[:IS]-(r:Release) RETURN count(r) AS total`,
		},
		"artists": {
			children: `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:BY]->(a:Artist) RETURN DISTINCT a.id AS id, a.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:BY]->(a:Artist) RETURN count(DISTINCT a) AS total`,
		},
		"labels": {
			children: `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:ON]->(l:Label) RETURN DISTINCT l.id AS id, l.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:ON]->(l:Label) RETURN count(DISTINCT l) AS total`,
		},
		"styles": {
			children: `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:IS]->(s:Style) RETURN DISTINCT s.name AS id, s.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (g:Genre {name: $name})<-[:IS]-(:Release)-[:IS]->(s:Style) RETURN count(DISTINCT s) AS total`,
		},
	},
	KindLabel: {
		"releases": {
			children: `MATCH (l:Label {id: $id})<-[:ON]-(r:Release) RETURN r.id AS id, r.title AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (l:Label {id: $id})<-[:ON]-(r:Release) RETURN count(r) AS total`,
		},
		"artists": {
			children: `MATCH (l:Label {id: $id})<-[:ON]-(:Release)-[:BY]->(a:Artist) RETURN DISTINCT a.id AS id, a.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (l:Label {id: $id})<-[:ON]-(:Release)-[:BY]->(a:Artist) RETURN count(DISTINCT a) AS total`,
		},
		"sublabels": {
			children: `MATCH (l:Label {id: $id})<-[:SUBLABEL_OF]-(sub:Label) RETURN sub.id AS id, sub.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (l:Label {id: $id})<-[:SUBLABEL_OF]-(sub:Label) RETURN count(sub) AS total`,
		},
	},
	KindStyle: {
		"releases": {
			children: `MATCH (s:Style {name: $name})<-[:IS]-(r:Release) RETURN r.id AS id, r.title AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (s:Style {name: $name})<-[:IS]-(r:Release) RETURN count(r) AS total`,
		},
		"artists": {
			children: `MATCH (s:Style {name: $name})<-[:IS]-(:Release)-[:BY]->(a:Artist) RETURN DISTINCT a.id AS id, a.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (s:Style {name: $name})<-[:IS]-(:Release)-[:BY]->(a:Artist) RETURN count(DISTINCT a) AS total`,
		},
		"labels": {
			children: `MATCH (s:Style {name: $name})<-[:IS]-(:Release)-[:ON]->(l:Label) RETURN DISTINCT l.id AS id, l.name AS name SKIP $offset LIMIT $limit`,
			count:    `MATCH (s:Style {name: $name})<-[:IS]-(:Release)-[:ON]->(l:Label) RETURN count(DISTINCT l) AS total`,
		},
	},
}

type exploreCategory struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type exploreResponse struct {
	Center     map[string]any    `json:"center"`
	Categories []exploreCategory `json:"categories"`
}

// Explore implements GET /api/explore?name=&type=.
func (a *API) Explore(c *fiber.Ctx) error {
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
	categories := categoriesByKind[kind]
	resp := exploreResponse{Center: center}
	for categoryName, def := range categories {
		total, err := a.runCount(c.Context(), def.count, map[string]any{"id": id, "name": name})
		if err != nil {
			return a.respondErr(c, err)
		}
		resp.Categories = append(resp.Categories, exploreCategory{Name: categoryName, Count: total})
	}
	return c.JSON(resp)
}

func (a *API) findCenterByName(ctx context.Context, kind EntityKind, name string) (map[string]any, error) {
	cypher := `MATCH (n:` + kind.graphLabel() + ` {` + kind.nameProperty() + `: $name}) RETURN n.id AS id, n.name AS name LIMIT 1`
	result, err := a.graph.WithRetry(ctx, neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, cypher, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		if !records.Next(ctx) {
			return nil, records.Err()
		}
		rec := records.Record()
		id, _ := rec.Get("id")
		n, _ := rec.Get("name")
		return map[string]any{"id": toString(id), "name": toString(n)}, records.Err()
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(map[string]any), nil
}

func (a *API) runCount(ctx context.Context, cypher string, params map[string]any) (int64, error) {
	result, err := a.graph.WithRetry(ctx, neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		if !records.Next(ctx) {
			return int64(0), records.Err()
		}
		total, _ := records.Record().Get("total")
		return toInt64(total), records.Err()
	})
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return result.(int64), nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
