package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"discogsography/internal/apperr"
	"discogsography/internal/middleware"
	"discogsography/internal/models"
)

const syncCooldownKeyTTL = 10 * time.Minute

// TriggerSync implements POST /api/sync (auth required), the trigger-point
// concurrency control in spec.md §4.D.4: cooldown key check, then the
// in-process running_syncs map check, then the INSERT + cooldown SETEX.
// runningSyncsMu guards only the running_syncs check, the INSERT and the
// map add; the cooldown check runs before the lock is taken and the SETEX
// after it is released.
func (a *API) TriggerSync(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	if a.cooldown != nil {
		hasCooldown, err := a.cooldown.HasCooldown(c.Context(), userID.String())
		if err != nil {
			return a.respondErr(c, apperr.Internal(err))
		}
		if hasCooldown {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"status": "cooldown"})
		}
	}

	a.runningSyncsMu.Lock()
	if _, running := a.runningSyncs[userID]; running {
		a.runningSyncsMu.Unlock()
		lastSyncID, err := a.lastRunningSyncID(c, userID)
		if err != nil {
			return a.respondErr(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "already_running", "sync_id": lastSyncID})
	}

	history := models.SyncHistory{UserID: userID, SyncType: models.SyncTypeFull, Status: models.SyncStatusRunning}
	if err := a.pool.DB.WithContext(c.Context()).Create(&history).Error; err != nil {
		a.runningSyncsMu.Unlock()
		return a.respondErr(c, apperr.Internal(err))
	}
	a.runningSyncs[userID] = struct{}{}
	a.runningSyncsMu.Unlock()

	if a.cooldown != nil {
		ttl := time.Duration(a.syncCooldown) * time.Second
		if ttl <= 0 {
			ttl = syncCooldownKeyTTL
		}
		if err := a.cooldown.SetCooldown(c.Context(), userID.String(), ttl); err != nil {
			a.log.Er("failed to set sync cooldown", err, "userID", userID)
		}
	}

	go a.runSyncAndRelease(userID, history.ID)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"sync_id": history.ID, "status": "started"})
}

// runSyncAndRelease runs the sync to completion on a detached context (an
// HTTP request's context is canceled once the response is sent, but
// spec.md §5 says sync tasks are NOT cancellable) and clears the
// running_syncs entry unconditionally so a later trigger isn't stuck.
func (a *API) runSyncAndRelease(userID, syncID uuid.UUID) {
	defer func() {
		a.runningSyncsMu.Lock()
		delete(a.runningSyncs, userID)
		a.runningSyncsMu.Unlock()
	}()
	a.syncEngine.RunFullSync(context.Background(), userID, syncID)
}

func (a *API) lastRunningSyncID(c *fiber.Ctx, userID uuid.UUID) (uuid.UUID, error) {
	var history models.SyncHistory
	err := a.pool.DB.WithContext(c.Context()).
		Where("user_id = ? AND status = ?", userID, models.SyncStatusRunning).
		Order("started_at DESC").First(&history).Error
	if err != nil {
		return uuid.UUID{}, apperr.Internal(err)
	}
	return history.ID, nil
}

// SyncStatus implements GET /api/sync/status (auth required): the most
// recent sync_history row for the caller, the polling source of truth.
func (a *API) SyncStatus(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var history models.SyncHistory
	err := a.pool.DB.WithContext(c.Context()).
		Where("user_id = ?", userID).
		Order("started_at DESC").First(&history).Error
	if err != nil {
		return a.respondErr(c, apperr.NotFound("sync history"))
	}
	return c.JSON(history)
}
