// Package models holds the GORM-mapped relational models: the user-scoped
// entities the Sync Engine and Read API operate on, and the per-type
// catalog tables the Table Sink writes.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseUUIDModel is embedded by every user-scoped row that needs a
// server-generated identity and soft-delete support.
type BaseUUIDModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime"                                 json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"                                 json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index"                                          json:"deletedAt,omitempty"`
}
