package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/apperr"
	"discogsography/internal/cache"
)

// luceneSpecialChars are the characters spec.md §4.E requires
// backslash-escaped before a term reaches the fulltext index query.
const luceneSpecialChars = `+-&&||!(){}[]^"~*?:\/`

// AutocompleteSuggestion is one scored match returned by the fulltext index.
type AutocompleteSuggestion struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// escapeLucene backslash-escapes every reserved character in q, per
// spec.md §4.E, ahead of splitting on whitespace and prefix-suffixing.
func escapeLucene(q string) string {
	var b strings.Builder
	for _, r := range q {
		if strings.ContainsRune(luceneSpecialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// buildLuceneQuery escapes, splits on whitespace, suffixes each term with
// `*` for prefix matching, and joins with ` AND `.
func buildLuceneQuery(q string) string {
	fields := strings.Fields(q)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, escapeLucene(f)+"*")
	}
	return strings.Join(terms, " AND ")
}

// Autocomplete implements GET /api/autocomplete?q=&type=&limit=.
func (a *API) Autocomplete(c *fiber.Ctx) error {
	q := c.Query("q")
	if len(q) < 2 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "q must be at least 2 characters"})
	}

	kind := ParseEntityKind(c.Query("type"))
	if kind == KindUnknown {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid type"})
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "limit must be between 1 and 50"})
	}

	key := cache.AutocompleteKey{Query: q, Type: kind.String(), Limit: limit}
	if cached, ok := a.autocomplete.Get(key); ok {
		return c.JSON(cached)
	}

	suggestions, err := a.queryAutocomplete(c.Context(), kind, q, limit)
	if err != nil {
		return a.respondErr(c, err)
	}

	a.autocomplete.Put(key, suggestions)
	return c.JSON(suggestions)
}

func (a *API) queryAutocomplete(ctx context.Context, kind EntityKind, q string, limit int) ([]AutocompleteSuggestion, error) {
	index := kind.fulltextIndex()
	var cypher string
	params := map[string]any{"limit": limit}

	if index != "" {
		cypher = `
			CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
			RETURN node.id AS id, node.name AS name, score
			ORDER BY score DESC
			LIMIT $limit
		`
		params["index"] = index
		params["query"] = buildLuceneQuery(q)
	} else {
		cypher = `
			MATCH (n:` + kind.graphLabel() + `)
			WHERE toLower(n.name) CONTAINS toLower($q)
			RETURN n.id AS id, n.name AS name, 1.0 AS score
			LIMIT $limit
		`
		params["q"] = q
	}

	result, err := a.graph.WithRetry(ctx, neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []AutocompleteSuggestion
		for records.Next(ctx) {
			rec := records.Record()
			id, _ := rec.Get("id")
			name, _ := rec.Get("name")
			score, _ := rec.Get("score")
			out = append(out, AutocompleteSuggestion{
				ID:    toString(id),
				Name:  toString(name),
				Score: toFloat(score),
			})
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if result == nil {
		return []AutocompleteSuggestion{}, nil
	}
	return result.([]AutocompleteSuggestion), nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
