package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/apperr"
)

type expandChild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type expandResponse struct {
	Children []expandChild `json:"children"`
	Total    int64         `json:"total"`
	Offset   int           `json:"offset"`
	Limit    int           `json:"limit"`
	HasMore  bool          `json:"has_more"`
}

// Expand implements GET /api/expand?node_id=&type=&category=&limit=&offset=,
// running the category's children query and its count query concurrently
// per spec.md §4.E.
func (a *API) Expand(c *fiber.Ctx) error {
	nodeID := c.Query("node_id")
	kind := ParseEntityKind(c.Query("type"))
	category := c.Query("category")
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	if nodeID == "" || kind == KindUnknown || category == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "node_id, type and category are required"})
	}
	if limit < 1 || limit > 200 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "limit must be between 1 and 200"})
	}
	if offset < 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "offset must be >= 0"})
	}

	def, ok := categoriesByKind[kind][category]
	if !ok {
		return a.respondErr(c, apperr.NotFound("category"))
	}

	params := map[string]any{"id": nodeID, "name": nodeID, "offset": offset, "limit": limit}

	type childrenResult struct {
		children []expandChild
		err      error
	}
	type countResult struct {
		total int64
		err   error
	}
	childrenCh := make(chan childrenResult, 1)
	countCh := make(chan countResult, 1)

	go func() {
		children, err := a.queryChildren(c.Context(), def.children, params)
		childrenCh <- childrenResult{children, err}
	}()
	go func() {
		total, err := a.runCount(c.Context(), def.count, params)
		countCh <- countResult{total, err}
	}()

	cr, tr := <-childrenCh, <-countCh
	if cr.err != nil {
		return a.respondErr(c, cr.err)
	}
	if tr.err != nil {
		return a.respondErr(c, tr.err)
	}

	return c.JSON(expandResponse{
		Children: cr.children,
		Total:    tr.total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  offset+len(cr.children) < int(tr.total),
	})
}

func (a *API) queryChildren(ctx context.Context, cypher string, params map[string]any) ([]expandChild, error) {
	result, err := a.graph.WithRetry(ctx, neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		children := []expandChild{}
		for records.Next(ctx) {
			rec := records.Record()
			id, _ := rec.Get("id")
			name, _ := rec.Get("name")
			children = append(children, expandChild{ID: toString(id), Name: toString(name)})
		}
		return children, records.Err()
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return result.([]expandChild), nil
}
