package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserCollectionItem is one (user, release, instance) row. instance_id is
// the Discogs-assigned copy identifier, permitting a user to own multiple
// copies of the same release.
type UserCollectionItem struct {
	UserID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"userId"`
	ReleaseID  string         `gorm:"type:text;primaryKey" json:"releaseId"`
	InstanceID string         `gorm:"type:text;primaryKey" json:"instanceId"`
	Folder     string         `gorm:"type:text"            json:"folder"`
	Artist     string         `gorm:"type:text"            json:"artist"`
	Title      string         `gorm:"type:text"            json:"title"`
	Year       int            `json:"year"`
	Formats    datatypes.JSON `gorm:"type:jsonb"           json:"formats,omitempty"`
	Label      string         `gorm:"type:text"            json:"label"`
	Rating     int            `json:"rating"`
	DateAdded  time.Time      `json:"dateAdded"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"           json:"metadata,omitempty"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"       json:"updatedAt"`
}

func (UserCollectionItem) TableName() string { return "user_collections" }

// UserWantlistItem is one (user, release) row.
type UserWantlistItem struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	ReleaseID string    `gorm:"type:text;primaryKey" json:"releaseId"`
	Artist    string    `gorm:"type:text"            json:"artist"`
	Title     string    `gorm:"type:text"            json:"title"`
	Year      int       `json:"year"`
	Format    string    `gorm:"type:text"            json:"format"`
	Rating    int       `json:"rating"`
	Notes     string    `gorm:"type:text"            json:"notes"`
	DateAdded time.Time `json:"dateAdded"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (UserWantlistItem) TableName() string { return "user_wantlists" }
