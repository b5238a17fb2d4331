package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"discogsography/internal/dbpool"
	"discogsography/internal/models"
	"discogsography/internal/sync"
	"discogsography/pkg/logger"
)

// PeriodicResyncJob implements the optional `PERIODIC_CHECK_DAYS`
// environment variable (spec.md §6): once a day, every user with a
// linked Discogs account whose most recent sync is older than the
// configured window (or who has never synced) gets a fresh full sync
// triggered automatically.
//
// Runs are sequential rather than fanned out, so the job never runs two
// of its own syncs at once. It does not consult the HTTP trigger path's
// in-process running_syncs map, so a scheduled run can overlap a manual
// trigger for the same user.
type PeriodicResyncJob struct {
	pool              *dbpool.Pool
	engine            *sync.Engine
	periodicCheckDays int
	log               logger.Logger
}

func NewPeriodicResyncJob(pool *dbpool.Pool, engine *sync.Engine, periodicCheckDays int) *PeriodicResyncJob {
	return &PeriodicResyncJob{pool: pool, engine: engine, periodicCheckDays: periodicCheckDays, log: logger.New("periodic-resync")}
}

func (j *PeriodicResyncJob) Name() string       { return "periodic-resync" }
func (j *PeriodicResyncJob) Schedule() Schedule { return Daily }

func (j *PeriodicResyncJob) Execute(ctx context.Context) error {
	if j.periodicCheckDays <= 0 {
		return nil
	}

	userIDs, err := j.dueUserIDs(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		history := models.SyncHistory{UserID: userID, SyncType: models.SyncTypeFull, Status: models.SyncStatusRunning}
		if err := j.pool.DB.WithContext(ctx).Create(&history).Error; err != nil {
			j.log.Er("failed to create sync_history row for periodic resync", err, "userID", userID)
			continue
		}
		// Detached per spec.md §5: a sync run outlives whatever triggered it.
		j.engine.RunFullSync(context.Background(), userID, history.ID)
	}

	return nil
}

// dueUserIDs returns every user with a linked Discogs token whose latest
// sync_history row (if any) started more than periodicCheckDays ago.
func (j *PeriodicResyncJob) dueUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := time.Now().AddDate(0, 0, -j.periodicCheckDays)

	var userIDs []uuid.UUID
	err := j.pool.DB.WithContext(ctx).
		Model(&models.OAuthToken{}).
		Where("provider = ?", "discogs").
		Where(`user_id NOT IN (
			SELECT user_id FROM sync_history
			GROUP BY user_id
			HAVING MAX(started_at) >= ?
		)`, cutoff).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
