package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncType string

const (
	SyncTypeFull       SyncType = "full"
	SyncTypeCollection SyncType = "collection"
	SyncTypeWantlist   SyncType = "wantlist"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncHistory is an append-only row per sync trigger; it is the sole
// record of a sync's outcome and the source of truth the Read API polls.
type SyncHistory struct {
	BaseUUIDModel
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_history_user" json:"userId"`
	SyncType     SyncType   `gorm:"type:text;not null"                             json:"syncType"`
	Status       SyncStatus `gorm:"type:text;not null;default:'running';index:idx_sync_history_status" json:"status"`
	ItemsSynced  int        `gorm:"not null;default:0"                             json:"itemsSynced"`
	ErrorMessage *string    `gorm:"type:text"                                      json:"errorMessage,omitempty"`
	StartedAt    time.Time  `gorm:"not null;autoCreateTime"                        json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (SyncHistory) TableName() string { return "sync_history" }

// MarkCompleted finalizes a running row with a success outcome.
func (s *SyncHistory) MarkCompleted(itemsSynced int) {
	now := time.Now()
	s.Status = SyncStatusCompleted
	s.ItemsSynced = itemsSynced
	s.CompletedAt = &now
}

// MarkFailed finalizes a running row with a descriptive failure.
func (s *SyncHistory) MarkFailed(reason string) {
	now := time.Now()
	s.Status = SyncStatusFailed
	s.ErrorMessage = &reason
	s.CompletedAt = &now
}
