package jobs

import (
	"context"
	"time"

	"discogsography/internal/dbpool"
	"discogsography/internal/models"
)

// staleRunningThreshold is generous relative to a real sync's expected
// duration: a genuinely stuck row (process killed mid-sync, per spec.md
// §5's "sync tasks are NOT cancellable") is reaped well after any
// legitimate run would have finished.
const staleRunningThreshold = 2 * time.Hour

// StaleSyncSweepJob implements spec.md §5's suggested cleanup pass as a
// recurring hourly sweep rather than a one-shot startup check, so a
// process that stays up for days still reaps rows left behind by a crash
// mid-run.
type StaleSyncSweepJob struct {
	pool *dbpool.Pool
}

func NewStaleSyncSweepJob(pool *dbpool.Pool) *StaleSyncSweepJob {
	return &StaleSyncSweepJob{pool: pool}
}

func (j *StaleSyncSweepJob) Name() string       { return "stale-sync-sweep" }
func (j *StaleSyncSweepJob) Schedule() Schedule { return Hourly }

func (j *StaleSyncSweepJob) Execute(ctx context.Context) error {
	cutoff := time.Now().Add(-staleRunningThreshold)
	reason := "reaped: sync left running past the staleness threshold, likely an unclean process exit"

	return j.pool.DB.WithContext(ctx).
		Model(&models.SyncHistory{}).
		Where("status = ? AND started_at < ?", models.SyncStatusRunning, cutoff).
		Updates(map[string]any{
			"status":        models.SyncStatusFailed,
			"error_message": reason,
			"completed_at":  time.Now(),
		}).Error
}
