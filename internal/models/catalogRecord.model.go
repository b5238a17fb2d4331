package models

import "gorm.io/datatypes"

// CatalogRecord is the Table Sink's row shape, shared across the four
// per-type tables (artists, labels, masters, releases). id is the Discogs
// numeric id rendered as string; data is the full JSON document as
// received off the bus; hash is the dedup content hash from internal/canon.
type CatalogRecord struct {
	ID   string         `gorm:"type:text;primaryKey" json:"id"`
	Data datatypes.JSON `gorm:"type:jsonb;not null"  json:"data"`
	Hash string         `gorm:"type:text;not null"   json:"hash"`
}

// ArtistRecord, LabelRecord, MasterRecord and ReleaseRecord give each
// catalog table its own Go type so GORM migrates and queries four distinct
// tables instead of one polymorphic one, matching the fixed four-table
// schema named in the external interfaces contract.
type (
	ArtistRecord  struct{ CatalogRecord }
	LabelRecord   struct{ CatalogRecord }
	MasterRecord  struct{ CatalogRecord }
	ReleaseRecord struct{ CatalogRecord }
)

func (ArtistRecord) TableName() string  { return "artists" }
func (LabelRecord) TableName() string   { return "labels" }
func (MasterRecord) TableName() string  { return "masters" }
func (ReleaseRecord) TableName() string { return "releases" }
