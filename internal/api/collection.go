package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/apperr"
	"discogsography/internal/middleware"
	"discogsography/internal/models"
)

type pagedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Collection implements GET /api/collection (auth required), cursor-paginated.
func (a *API) Collection(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	offset := decodeCursor(c.Query("cursor"))
	limit := c.QueryInt("limit", 50)

	var items []models.UserCollectionItem
	err := a.pool.DB.WithContext(c.Context()).
		Where("user_id = ?", userID).
		Order("date_added DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	resp := pagedResponse[models.UserCollectionItem]{Items: items}
	if len(items) == limit {
		resp.NextCursor = encodeCursor(offset + limit)
	}
	return c.JSON(resp)
}

// Wantlist implements GET /api/wantlist (auth required), cursor-paginated.
func (a *API) Wantlist(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	offset := decodeCursor(c.Query("cursor"))
	limit := c.QueryInt("limit", 50)

	var items []models.UserWantlistItem
	err := a.pool.DB.WithContext(c.Context()).
		Where("user_id = ?", userID).
		Order("date_added DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	resp := pagedResponse[models.UserWantlistItem]{Items: items}
	if len(items) == limit {
		resp.NextCursor = encodeCursor(offset + limit)
	}
	return c.JSON(resp)
}

type collectionStats struct {
	CollectionCount int64 `json:"collection_count"`
	WantlistCount   int64 `json:"wantlist_count"`
}

// CollectionStats implements GET /api/collection/stats (auth required).
func (a *API) CollectionStats(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var stats collectionStats
	if err := a.pool.DB.WithContext(c.Context()).Model(&models.UserCollectionItem{}).Where("user_id = ?", userID).Count(&stats.CollectionCount).Error; err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}
	if err := a.pool.DB.WithContext(c.Context()).Model(&models.UserWantlistItem{}).Where("user_id = ?", userID).Count(&stats.WantlistCount).Error; err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}
	return c.JSON(stats)
}

type recommendation struct {
	ReleaseID string  `json:"release_id"`
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
}

// Recommendations implements GET /api/recommendations (auth required),
// running spec.md §4.E's scoring formula as a single Cypher query: top-10
// artists by the user's collected-release count, then every other release
// by those artists not already collected or wanted, scored by the sum of
// the contributing artists' collected counts. Tie-break on equal score is
// left unordered per spec.md §9's open question.
func (a *API) Recommendations(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 200 {
		limit = 20
	}

	cypher := `
		MATCH (u:User {id: $userId})-[:COLLECTED]->(:Release)<-[:BY]-(a:Artist)
		WITH u, a, count(*) AS artistCount
		ORDER BY artistCount DESC
		LIMIT 10
		MATCH (a)<-[:BY]-(r:Release)
		WHERE NOT (u)-[:COLLECTED]->(r) AND NOT (u)-[:WANTS]->(r)
		WITH r, sum(artistCount) AS score
		RETURN r.id AS id, r.title AS title, score
		ORDER BY score DESC
		LIMIT $limit
	`
	result, err := a.graph.WithRetry(c.Context(), neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(c.Context(), cypher, map[string]any{"userId": userID.String(), "limit": limit})
		if err != nil {
			return nil, err
		}
		recs := []recommendation{}
		for records.Next(c.Context()) {
			rec := records.Record()
			id, _ := rec.Get("id")
			title, _ := rec.Get("title")
			score, _ := rec.Get("score")
			recs = append(recs, recommendation{ReleaseID: toString(id), Title: toString(title), Score: toFloat(score)})
		}
		return recs, records.Err()
	})
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}
	return c.JSON(result.([]recommendation))
}

// Status implements GET /api/status?ids=a,b,c, optional-auth: an
// unauthenticated caller gets every id mapped to {false, false} rather
// than a 401, per spec.md §4.E.
func (a *API) Status(c *fiber.Ctx) error {
	idsParam := c.Query("ids")
	ids := []string{}
	if idsParam != "" {
		ids = strings.Split(idsParam, ",")
	}

	type itemStatus struct {
		InCollection bool `json:"in_collection"`
		InWantlist   bool `json:"in_wantlist"`
	}
	result := make(map[string]itemStatus, len(ids))
	for _, id := range ids {
		result[id] = itemStatus{}
	}

	userID, ok := middleware.UserID(c)
	if !ok || len(ids) == 0 {
		return c.JSON(result)
	}

	var collected []string
	a.pool.DB.WithContext(c.Context()).Model(&models.UserCollectionItem{}).
		Where("user_id = ? AND release_id IN ?", userID, ids).
		Distinct().Pluck("release_id", &collected)
	for _, id := range collected {
		result[id] = itemStatus{InCollection: true, InWantlist: result[id].InWantlist}
	}

	var wanted []string
	a.pool.DB.WithContext(c.Context()).Model(&models.UserWantlistItem{}).
		Where("user_id = ? AND release_id IN ?", userID, ids).
		Pluck("release_id", &wanted)
	for _, id := range wanted {
		result[id] = itemStatus{InCollection: result[id].InCollection, InWantlist: true}
	}

	return c.JSON(result)
}
