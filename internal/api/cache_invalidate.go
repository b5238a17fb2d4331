package api

import (
	"github.com/gofiber/fiber/v2"

	"discogsography/internal/cache"
)

type invalidateRequest struct {
	Pattern string `json:"pattern"`
	Secret  string `json:"secret"`
}

// InvalidateCache implements POST /api/cache/invalidate: constant-time
// compares the supplied secret against the configured webhook secret and,
// on match, deletes every cache key matching pattern. 503 if unconfigured,
// 401 on mismatch, per spec.md §4.E.
func (a *API) InvalidateCache(c *fiber.Ctx) error {
	var req invalidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := cache.VerifyWebhookSecret(a.cacheWebhookSecret, req.Secret); err != nil {
		return a.respondErr(c, err)
	}

	if a.cooldown == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cache store not configured"})
	}

	deleted, err := a.cooldown.InvalidatePattern(c.Context(), req.Pattern)
	if err != nil {
		return a.respondErr(c, err)
	}
	return c.JSON(fiber.Map{"deleted_count": deleted})
}
