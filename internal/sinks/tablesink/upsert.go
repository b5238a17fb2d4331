// Package tablesink consumes the four catalog topics and upserts the raw
// JSON payload into its per-type PostgreSQL table, per spec.md §4.C.
package tablesink

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"discogsography/internal/catalog"
	"discogsography/internal/dbpool"
	"discogsography/internal/models"
)

// ReadHash fetches the hash column currently stored for id in table. A
// missing row returns "", nil — the caller treats that the same as a
// mismatched hash (proceed to write).
func ReadHash(ctx context.Context, pool *dbpool.Pool, kind catalog.Kind, id string) (string, error) {
	var hash string
	err := pool.WithRetry(ctx, func(ctx context.Context) error {
		db := pool.DB.WithContext(ctx).Table(tableName(kind)).Select("hash").Where("id = ?", id)
		err := db.Row().Scan(&hash)
		if errors.Is(err, sql.ErrNoRows) {
			hash = ""
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Upsert writes the raw payload and hash for id into the table named by
// kind, using ON CONFLICT (id) DO UPDATE so a retried delivery after a
// partial failure is idempotent.
func Upsert(ctx context.Context, pool *dbpool.Pool, kind catalog.Kind, id string, data []byte, hash string) error {
	record := models.CatalogRecord{ID: id, Data: datatypes.JSON(data), Hash: hash}

	return pool.WithRetry(ctx, func(ctx context.Context) error {
		return pool.DB.WithContext(ctx).
			Table(tableName(kind)).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "hash"}),
			}).
			Create(&record).Error
	})
}

func tableName(kind catalog.Kind) string {
	switch kind {
	case catalog.KindArtist:
		return "artists"
	case catalog.KindLabel:
		return "labels"
	case catalog.KindMaster:
		return "masters"
	case catalog.KindRelease:
		return "releases"
	}
	return ""
}
